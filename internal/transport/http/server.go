package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	appsvc "bugtalk/internal/app"
	"bugtalk/internal/bootstrap"
	"bugtalk/internal/cache"
	"bugtalk/internal/config"
	"bugtalk/internal/model"
	"bugtalk/internal/oauth"
	"bugtalk/internal/pkg/jwtutil"
	"bugtalk/internal/platform/rabbitmq"
	"bugtalk/internal/repository"
	"bugtalk/internal/storage"
	"bugtalk/internal/transport/http/handler"
	"bugtalk/internal/transport/http/middleware"
)

// Services is everything the router needs besides configuration.
type Services struct {
	JWT        *jwtutil.Manager
	Auth       *appsvc.AuthService
	Users      *appsvc.UserService
	Posts      *appsvc.PostService
	Comments   *appsvc.CommentService
	Categories *appsvc.CategoryService
	OAuth      *oauth.Registry
	Avatars    *storage.AvatarStore
	Health     *handler.HealthHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config

	userRepo := repository.NewUserRepository(app.DB)
	postRepo := repository.NewPostRepository(app.DB)
	commentRepo := repository.NewCommentRepository(app.DB)
	categoryRepo := repository.NewCategoryRepository(app.DB)
	likeRepo := repository.NewLikeRepository(app.DB)
	bookmarkRepo := repository.NewBookmarkRepository(app.DB)

	tokens := jwtutil.NewManager(
		jwtutil.KeyConfig{Secret: cfg.Auth.AccessSecret, Expiration: cfg.Auth.AccessTTL()},
		jwtutil.KeyConfig{Secret: cfg.Auth.RefreshSecret, Expiration: cfg.Auth.RefreshTTL()},
	)
	authService := appsvc.NewAuthService(
		userRepo,
		cache.NewTokenStore(app.Redis),
		rabbitmq.NewMailPublisher(app.MQConn, cfg.RabbitMQ.MailQueue),
		tokens,
		appsvc.AuthOptions{
			VerifyTokenTTL: cfg.Auth.VerifyTokenTTL(),
			ResetTokenTTL:  cfg.Auth.ResetTokenTTL(),
			DefaultAvatar:  cfg.Avatar.DefaultURL,
		},
	)
	postService := appsvc.NewPostService(postRepo, categoryRepo, likeRepo, bookmarkRepo)
	avatars := storage.NewAvatarStore(cfg.Avatar.UploadDir, cfg.Avatar.PublicPrefix, cfg.Avatar.MaxSizeKB, cfg.Avatar.AllowedTypes)

	return NewEngine(cfg, Services{
		JWT:        tokens,
		Auth:       authService,
		Users:      appsvc.NewUserService(userRepo, postRepo, bookmarkRepo, avatars, cfg.Avatar.DefaultURL),
		Posts:      postService,
		Comments:   appsvc.NewCommentService(commentRepo, postService, likeRepo),
		Categories: appsvc.NewCategoryService(categoryRepo, postRepo),
		OAuth:      oauth.NewRegistry(cfg.OAuth),
		Avatars:    avatars,
		Health: handler.NewHealthHandler(cfg.App.Name, cfg.App.Env, app.StartedAt, map[string]handler.Check{
			"database": app.PingDB,
			"redis":    app.PingRedis,
			"rabbitmq": app.PingRabbitMQ,
		}),
	})
}

func NewEngine(cfg *config.Config, svc Services) *gin.Engine {
	gin.SetMode(cfg.App.GinMode)
	handler.RegisterValidatorTags()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if svc.Health != nil {
		router.GET("/healthz", svc.Health.Check)
	}
	if svc.Avatars != nil {
		router.Static(svc.Avatars.PublicPrefix(), svc.Avatars.Dir())
	}

	access := middleware.AccessGuard(svc.JWT, svc.Auth)
	optional := middleware.OptionalAccess(svc.JWT, svc.Auth)
	refresh := middleware.RefreshGuard(svc.JWT, svc.Auth)
	adminOnly := middleware.RequireRoles(model.RoleAdmin)

	authHandler := handler.NewAuthHandler(svc.Auth, svc.OAuth, handler.CookieOptions{
		Secure:              cfg.Auth.CookieSecure,
		RefreshTTL:          cfg.Auth.RefreshTTL(),
		FrontendCallbackURL: cfg.OAuth.FrontendCallbackURL,
	})
	userHandler := handler.NewUserHandler(svc.Users)
	postHandler := handler.NewPostHandler(svc.Posts, svc.Comments)
	commentHandler := handler.NewCommentHandler(svc.Comments)
	categoryHandler := handler.NewCategoryHandler(svc.Categories)

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", access, authHandler.Logout)
	authGroup.POST("/verify", authHandler.SendVerification)
	authGroup.POST("/verify/:token", authHandler.Verify)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/password-reset/:token", authHandler.ResetPassword)
	authGroup.POST("/refresh-tokens", refresh, authHandler.RefreshTokens)
	authGroup.GET("/self", access, authHandler.Self)
	for _, provider := range []string{"google", "github"} {
		authGroup.GET("/"+provider, authHandler.OAuthRedirect(provider))
		authGroup.GET("/"+provider+"/callback", authHandler.OAuthCallback(provider))
	}

	users := api.Group("/users")
	users.GET("", access, adminOnly, userHandler.List)
	users.POST("", access, adminOnly, userHandler.Create)
	users.GET("/:id", optional, userHandler.Get)
	users.PATCH("/:id", access, userHandler.Update)
	users.DELETE("/:id", access, userHandler.Delete)
	users.POST("/:id/avatar", access, userHandler.UploadAvatar)
	users.GET("/:id/posts", optional, userHandler.ListPosts)

	api.GET("/bookmarks", access, userHandler.ListBookmarks)

	posts := api.Group("/posts")
	posts.GET("", optional, postHandler.List)
	posts.POST("", access, postHandler.Create)
	posts.GET("/:id", optional, postHandler.Get)
	posts.PATCH("/:id", access, postHandler.Update)
	posts.DELETE("/:id", access, postHandler.Delete)
	posts.GET("/:id/comments", optional, postHandler.ListComments)
	posts.POST("/:id/comments", access, postHandler.CreateComment)
	posts.GET("/:id/categories", optional, postHandler.ListCategories)
	posts.GET("/:id/likes", optional, postHandler.ListLikes)
	posts.POST("/:id/likes", access, postHandler.AddLike)
	posts.DELETE("/:id/likes", access, postHandler.RemoveLike)
	posts.POST("/:id/bookmark", access, postHandler.AddBookmark)
	posts.DELETE("/:id/bookmark", access, postHandler.RemoveBookmark)

	comments := api.Group("/comments")
	comments.GET("/:id", optional, commentHandler.Get)
	comments.PATCH("/:id", access, commentHandler.Update)
	comments.DELETE("/:id", access, commentHandler.Delete)
	comments.GET("/:id/likes", optional, commentHandler.ListLikes)
	comments.POST("/:id/likes", access, commentHandler.AddLike)
	comments.DELETE("/:id/likes", access, commentHandler.RemoveLike)

	categories := api.Group("/categories")
	categories.GET("", categoryHandler.List)
	categories.GET("/:id", categoryHandler.Get)
	categories.GET("/:id/posts", optional, categoryHandler.ListPosts)
	categories.POST("", access, adminOnly, categoryHandler.Create)
	categories.PATCH("/:id", access, adminOnly, categoryHandler.Update)
	categories.DELETE("/:id", access, adminOnly, categoryHandler.Delete)

	return router
}
