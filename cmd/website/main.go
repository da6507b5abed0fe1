package main

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/adampresley/adamgokit/awsconfig"
	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/mux"
	"github.com/adampresley/adamgokit/rendering"
	"github.com/adampresley/adamgokit/retrier"
	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/adamgokit/sessions"
	"github.com/adampresley/picturegallery/cmd/website/internal/actions"
	"github.com/adampresley/picturegallery/cmd/website/internal/configuration"
	"github.com/adampresley/picturegallery/cmd/website/internal/gallery"
	"github.com/adampresley/picturegallery/cmd/website/internal/selection"
	"github.com/adampresley/picturegallery/cmd/website/internal/thumbnails"
	"github.com/adampresley/picturegallery/pkg/models"
	"github.com/adampresley/picturegallery/pkg/services"
	_ "github.com/glebarez/sqlite"
	"github.com/rfberaldo/sqlz"
	"github.com/rfberaldo/sqlz/binds"
	"golang.org/x/time/rate"
)

var (
	Version string = "development"
	appName string = "picturegallery"

	//go:embed app
	appFS embed.FS

	//go:embed sql-migrations
	sqlMigrationsFs embed.FS

	config configuration.Config

	/* Services */
	activityService services.ActivityServicer
	archiveService  services.ArchiveServicer
	db              *sqlz.DB
	pictureService  services.PictureServicer
	renderer        rendering.TemplateRenderer
	selections      *selection.Registry
	sessionService  sessions.Session[string]
	thumbnailCache  thumbnails.ThumbnailCacher

	/* Controllers */
	galleryController gallery.GalleryHandlers
)

func main() {
	var (
		err            error
		thumbnailStore thumbnails.Store
	)

	config = configuration.LoadConfig()
	setupLogger(&config, Version)

	slog.Info("configuration loaded",
		slog.String("app", appName),
		slog.String("version", Version),
		slog.String("loglevel", config.LogLevel),
		slog.String("host", config.Host),
		slog.String("backendURL", config.BackendURL),
		slog.String("awsBucket", config.AwsBucket),
	)

	slog.Debug("setting up...")

	shutdownCtx, cancel := context.WithCancel(context.Background())

	/*
	 * Setup services
	 */
	binds.Register("sqlite", binds.BindByDriver("sqlite3"))
	if db, err = sqlz.Connect("sqlite", config.DSN); err != nil {
		panic(err)
	}

	migrateDatabase()

	cookieStore := sessions.NewCookieStore(config.CookieSecret)
	sessionService = sessions.NewSessionWrapper[string](cookieStore, "picturegallery", "sessionID")
	selections = selection.NewRegistry(selection.RegistryConfig{IdleTimeout: 24 * time.Hour})

	if thumbnailStore, err = setupThumbnailStore(); err != nil {
		slog.Error("error setting up S3 thumbnail store. falling back to memory", "error", err)
		thumbnailStore = thumbnails.NewMemoryStore()
	}

	renderer, err = rendering.NewGoTemplateRenderer(rendering.GoTemplateRendererConfig{
		TemplateDir:       "app",
		TemplateExtension: ".html",
		TemplateFS:        appFS,
		PagesDir:          "pages",
	})

	if err != nil {
		panic(err)
	}

	pictureService = services.NewPictureService(services.PictureServiceConfig{
		BaseURL:   config.BackendURL,
		Limiter:   rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.RequestsPerSecond),
		Timeout:   time.Duration(config.RequestTimeout) * time.Second,
		UserAgent: appName + "/" + Version,
	})

	activityService = services.NewActivityService(services.ActivityServiceConfig{
		DB: db,
	})

	archiveService = services.NewArchiveService(services.ArchiveServiceConfig{})

	thumbnailCache = thumbnails.NewThumbnailCache(thumbnails.ThumbnailCacheConfig{
		MaxSize:     uint(config.ThumbnailSize),
		MaxWorkers:  config.MaxThumbnailWorkers,
		ShutdownCtx: shutdownCtx,
		Store:       thumbnailStore,
	})

	handlers := actions.NewHandlers(actions.HandlersConfig{
		ActivityService: activityService,
		ArchiveService:  archiveService,
		OnReload: func(pictures []models.Picture) {
			go thumbnailCache.Warm(pictures)
		},
		PictureService: pictureService,
	})

	probeBackend(handlers)

	/*
	 * Setup controllers
	 */
	galleryController = gallery.NewGalleryController(gallery.GalleryControllerConfig{
		Handlers:       handlers,
		MaxUploadBytes: int64(config.MaxUploadMB) << 20,
		Renderer:       renderer,
		Selections:     selections,
		SessionService: sessionService,
		Thumbnails:     thumbnailCache,
	})

	/*
	 * Setup router and http server
	 */
	slog.Debug("setting up routes...")

	defaultMiddlewares := []mux.MiddlewareFunc{
		requestIDMiddleware,
		newRequestLoggerMiddleware([]string{"/static", "/heartbeat", "/thumbnails"}),
	}

	routes := []mux.Route{
		{Path: "GET /heartbeat", HandlerFunc: heartbeat},
		{Path: "GET /", HandlerFunc: galleryController.GalleryPage, Middlewares: defaultMiddlewares},
		{Path: "GET /gallery/grid", HandlerFunc: galleryController.Grid, Middlewares: defaultMiddlewares},
		{Path: "GET /selection/toolbar", HandlerFunc: galleryController.Toolbar, Middlewares: defaultMiddlewares},
		{Path: "POST /pictures/upload", HandlerFunc: galleryController.Upload, Middlewares: defaultMiddlewares},
		{Path: "POST /pictures/rate", HandlerFunc: galleryController.Rate, Middlewares: defaultMiddlewares},
		{Path: "POST /pictures/comment", HandlerFunc: galleryController.Comment, Middlewares: defaultMiddlewares},
		{Path: "POST /pictures/delete", HandlerFunc: galleryController.Delete, Middlewares: defaultMiddlewares},
		{Path: "POST /pictures/download", HandlerFunc: galleryController.Download, Middlewares: defaultMiddlewares},
		{Path: "POST /selection/delete-mode", HandlerFunc: galleryController.EnterDeleteMode, Middlewares: defaultMiddlewares},
		{Path: "POST /selection/download-mode", HandlerFunc: galleryController.EnterDownloadMode, Middlewares: defaultMiddlewares},
		{Path: "POST /selection/cancel", HandlerFunc: galleryController.CancelSelection, Middlewares: defaultMiddlewares},
		{Path: "POST /selection/toggle", HandlerFunc: galleryController.Toggle, Middlewares: defaultMiddlewares},
		{Path: "POST /selection/toggle-all", HandlerFunc: galleryController.ToggleAll, Middlewares: defaultMiddlewares},
		{Path: "GET /stats", HandlerFunc: galleryController.Stats, Middlewares: defaultMiddlewares},
		{Path: "GET /thumbnails/{name}", HandlerFunc: galleryController.Thumbnail, Middlewares: defaultMiddlewares},
	}

	routerConfig := mux.RouterConfig{
		Address:              config.Host,
		Debug:                Version == "development",
		ServeStaticContent:   true,
		StaticContentRootDir: "app",
		StaticContentPrefix:  "/static/",
		StaticFS:             appFS,
		HttpWriteTimeout:     config.RequestTimeout + 30,
	}

	m := mux.SetupRouter(routerConfig, routes)
	httpServer, quit := mux.SetupServer(routerConfig, m)

	/*
	 * Wait for graceful shutdown
	 */
	slog.Info("server started")

	<-quit

	cancel()
	mux.Shutdown(httpServer)
	thumbnailCache.Stop()
	slog.Info("server stopped")
}

func heartbeat(w http.ResponseWriter, r *http.Request) {
	httphelpers.TextOK(w, "OK")
}

/*
probeBackend loads the first picture list, retrying while the API comes up.
The server starts either way.
*/
func probeBackend(handlers *actions.Handlers) {
	var (
		err error
	)

	retrier.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		if _, err = handlers.Reload(ctx); err != nil {
			slog.Error("picture API is not reachable. trying again", "backendURL", config.BackendURL, "error", err)
			return err
		}

		return nil
	})

	if err != nil {
		slog.Warn("starting without an initial picture list", "error", err)
		return
	}

	slog.Info("initial picture list loaded", "pictures", len(handlers.Store().Names()))
}

func setupThumbnailStore() (thumbnails.Store, error) {
	var (
		err      error
		s3Client s3.S3Client
	)

	if config.AwsBucket == "" {
		slog.Info("thumbnails will be kept in memory")
		return thumbnails.NewMemoryStore(), nil
	}

	awsConfig := &awsconfig.Config{
		Endpoint:        config.AwsEndpointUrl,
		Region:          config.AwsRegion,
		AccessKeyID:     config.AwsAccessKeyId,
		SecretAccessKey: config.AwsSecretAccessKey,
	}

	retrier.Retry(func() error {
		if err = awsConfig.Load(); err != nil {
			slog.Error("failed to load AWS config. trying again", "error", err)
			return err
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	if s3Client, err = s3.NewClient(awsConfig); err != nil {
		return nil, err
	}

	return thumbnails.NewS3Store(thumbnails.S3StoreConfig{
		Bucket:   config.AwsBucket,
		Folder:   config.ThumbnailFolder,
		Region:   config.AwsRegion,
		S3Client: s3Client,
	})
}

func migrateDatabase() {
	var (
		err  error
		dirs []fs.DirEntry
		b    []byte
	)

	if dirs, err = sqlMigrationsFs.ReadDir("sql-migrations"); err != nil {
		panic(err)
	}

	for _, d := range dirs {
		if d.IsDir() {
			continue
		}

		if strings.HasPrefix(d.Name(), "commit") {
			if b, err = fs.ReadFile(sqlMigrationsFs, filepath.Join("sql-migrations", d.Name())); err != nil {
				panic(err)
			}

			if err = runSqlScript(b); err != nil {
				if !isIgnorableError(err) {
					panic(err)
				}
			}
		}
	}
}

func runSqlScript(script []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	_, err := db.Exec(ctx, string(script))
	return err
}

func isIgnorableError(err error) bool {
	if strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists") {
		return true
	}

	return false
}
