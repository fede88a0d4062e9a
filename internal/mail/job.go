package mail

type Kind string

const (
	KindVerify Kind = "verify"
	KindReset  Kind = "reset"
)

// Job is the queued unit of work consumed by the mail worker.
type Job struct {
	Kind  Kind   `json:"kind"`
	To    string `json:"to"`
	Token string `json:"token"`
}
