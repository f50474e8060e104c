package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/booklyapp/bookly/internal/handlers"
	"github.com/booklyapp/bookly/internal/middleware"
	"github.com/booklyapp/bookly/internal/models"
)

type Deps struct {
	Gate          *middleware.TokenGate
	AuthHandler   *handlers.AuthHandler
	BookHandler   *handlers.BookHandler
	ReviewHandler *handlers.ReviewHandler
	TagHandler    *handlers.TagHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	anyRole := d.Gate.RequireRoles(models.RoleAdmin, models.RoleUser)
	adminOnly := d.Gate.RequireRoles(models.RoleAdmin)
	access := d.Gate.Require(middleware.AccessToken)
	refresh := d.Gate.Require(middleware.RefreshToken)

	auth := v1.Group("/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.GET("/verify/:token", d.AuthHandler.Verify)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/refresh-token", d.AuthHandler.Refresh, refresh)
	auth.GET("/me", d.AuthHandler.Me, access, anyRole)
	auth.GET("/logout", d.AuthHandler.Logout, access)
	auth.POST("/send-mail", d.AuthHandler.SendMail)
	auth.POST("/password-reset-request", d.AuthHandler.PasswordResetRequest)
	auth.POST("/password-reset-confirm/:token", d.AuthHandler.PasswordResetConfirm)

	books := v1.Group("/books", access, anyRole)
	books.GET("", d.BookHandler.GetBooks)
	books.GET("/search", d.BookHandler.SearchBooks)
	books.GET("/user/:user_uid", d.BookHandler.GetUserBooks)
	books.GET("/:uid", d.BookHandler.GetBook)
	books.POST("", d.BookHandler.CreateBook)
	books.PATCH("/:uid", d.BookHandler.PatchBook)
	books.DELETE("/:uid", d.BookHandler.DeleteBook)

	reviews := v1.Group("/reviews", access)
	reviews.GET("", d.ReviewHandler.GetReviews, adminOnly)
	reviews.GET("/:uid", d.ReviewHandler.GetReview, anyRole)
	reviews.POST("/book/:book_uid", d.ReviewHandler.CreateReview, anyRole)
	reviews.PUT("/:uid", d.ReviewHandler.UpdateReview, anyRole)
	reviews.DELETE("/:uid", d.ReviewHandler.DeleteReview, anyRole)

	tags := v1.Group("/tags", access, anyRole)
	tags.GET("", d.TagHandler.GetTags)
	tags.POST("", d.TagHandler.CreateTag)
	tags.PUT("/:uid", d.TagHandler.UpdateTag)
	tags.DELETE("/:uid", d.TagHandler.DeleteTag)
	tags.POST("/book/:book_uid", d.TagHandler.AddTagsToBook)
}
