package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	httpapi "github.com/mkpublisher/showcase/internal/api/http"
	"github.com/mkpublisher/showcase/internal/api/http/middleware"
	authhttp "github.com/mkpublisher/showcase/internal/auth/http"
	authmw "github.com/mkpublisher/showcase/internal/auth/middleware"
	authsvc "github.com/mkpublisher/showcase/internal/auth/service"
	"github.com/mkpublisher/showcase/internal/catalog"
	projecthttp "github.com/mkpublisher/showcase/internal/projects/http"
	projectsvc "github.com/mkpublisher/showcase/internal/projects/service"
	"github.com/mkpublisher/showcase/internal/realtime"
	"github.com/mkpublisher/showcase/internal/remote"
	"github.com/mkpublisher/showcase/internal/session"
	"github.com/mkpublisher/showcase/internal/web"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	BaseURL     string
	CORSOrigins []string
	Log         *logrus.Logger
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Backend     remote.Backend
	Verifier    authmw.Verifier
	Sessions    *session.Manager
	Catalog     *catalog.State
	Hub         *realtime.Hub
}

func BuildRouter(dep RouterDeps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Log))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis, dep.Catalog)
	healthHandler.RegisterRoutes(r)

	facade := authsvc.NewFacade(dep.Backend, dep.Log)
	submissions := projectsvc.New(dep.Backend.Projects, dep.Hub)

	api := r.Group("/api/v1")
	api.Use(cors.New(cors.Config{
		AllowOrigins:     dep.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	bearer := authmw.BearerAuth(dep.Verifier)
	authhttp.New(facade).Register(api, api.Group("", bearer))
	projecthttp.New(submissions, dep.Catalog).Register(api.Group("/projects"), bearer)

	pages, err := web.New(web.Deps{
		Facade:   facade,
		Sessions: dep.Sessions,
		Projects: submissions,
		Catalog:  dep.Catalog,
		Hub:      dep.Hub,
		Log:      dep.Log,
		BaseURL:  dep.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	pages.Register(r.Group(""))

	return r, nil
}
