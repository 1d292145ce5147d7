package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meno/internal/handlers"
	"meno/internal/middleware"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Contents      *handlers.ContentHandler
	Reels         *handlers.ReelHandler
	Stories       *handlers.StoryHandler
	Comments      *handlers.CommentHandler
	Chats         *handlers.ChatHandler
	Notifications *handlers.NotificationHandler
}

// SetupRoutes mounts the public endpoints, then everything else behind
// bearer auth. Websocket routes also accept the token as ?token=.
func SetupRoutes(r *gin.Engine, h Handlers, tokens middleware.TokenParser, mediaDir, mediaPrefix string) *gin.Engine {
	// ---- public
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static(mediaPrefix, mediaDir)

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
	}

	// ---- websockets
	ws := r.Group("/ws", middleware.Auth(tokens, true))
	{
		ws.GET("/chats/:id", h.Chats.Stream)
		ws.GET("/notifications", h.Notifications.Stream)
	}

	// ---- protected
	api := r.Group("/", middleware.Auth(tokens, false))

	users := api.Group("/users")
	{
		users.GET("/:id", h.Users.Profile)
		users.POST("/:id/follow", h.Users.Follow)
		users.DELETE("/:id/follow", h.Users.Unfollow)
		users.GET("/:id/contents", h.Contents.ListByUser)
		users.GET("/:id/reels", h.Reels.ListByUser)
	}

	contents := api.Group("/contents")
	{
		contents.POST("", h.Contents.Create)
		contents.GET("/:id", h.Contents.Get)
		contents.DELETE("/:id", h.Contents.Delete)
		contents.POST("/:id/like", h.Contents.Like)
		contents.POST("/:id/archive", h.Contents.Archive)
		contents.POST("/:id/comments", h.Comments.CreateForContent)
		contents.GET("/:id/comments", h.Comments.ListForContent)
	}

	reels := api.Group("/reels")
	{
		reels.POST("", h.Reels.Create)
		reels.GET("/:id", h.Reels.Get)
		reels.DELETE("/:id", h.Reels.Delete)
		reels.POST("/:id/like", h.Reels.Like)
		reels.POST("/:id/archive", h.Reels.Archive)
		reels.POST("/:id/comments", h.Comments.CreateForReel)
		reels.GET("/:id/comments", h.Comments.ListForReel)
	}
	api.DELETE("/comments/:id", h.Comments.Delete)

	stories := api.Group("/stories")
	{
		stories.POST("", h.Stories.Create)
		stories.GET("", h.Stories.Feed)
		stories.DELETE("/:id", h.Stories.Delete)
	}

	chats := api.Group("/chats")
	{
		chats.POST("", h.Chats.CreateChat)
		chats.GET("", h.Chats.ListChats)
		chats.GET("/:id", h.Chats.GetChat)
		chats.DELETE("/:id", h.Chats.DeleteChat)
		chats.POST("/:id/messages", h.Chats.SendMessage)
		chats.POST("/:id/share/content", h.Chats.ShareContent)
		chats.POST("/:id/share/reel", h.Chats.ShareReel)
		chats.POST("/:id/share/user", h.Chats.ShareUser)
	}
	api.DELETE("/messages/:id", h.Chats.DeleteMessage)
	api.DELETE("/shares/:id", h.Chats.DeleteShare)

	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.Notifications.List)
		notifications.POST("/:id/read", h.Notifications.MarkRead)
	}

	return r
}
