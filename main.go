package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"inkwell/config"
	"inkwell/models"
	"inkwell/services"
	"inkwell/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	postsPublishedCounter prometheus.Counter
	triggerRunsCounter    prometheus.Counter
)

func init() {
	postsPublishedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "posts_published_total",
			Help: "Total number of posts moved to published.",
		},
	)
	triggerRunsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "publish_trigger_runs_total",
			Help: "Total number of scheduled publication trigger runs.",
		},
	)
	prometheus.MustRegister(postsPublishedCounter, triggerRunsCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	campaignStart, err := cfg.CampaignStartDate()
	if err != nil {
		logging.Fatal("Invalid campaign window", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to content database.")

	// Auto-Migration
	if gin.Mode() == gin.DebugMode {
		logging.Info("Debug mode detected. Dropping tables for fresh start.")
		db.Migrator().DropTable(&models.Post{}, &models.Series{})
	}
	logging.Info("Running database auto-migration...")
	db.AutoMigrate(&models.Series{}, &models.Post{})

	// Setup Services
	store := storage.NewGormStore(db, logging)
	var notifier services.Notifier
	if webhook := services.NewWebhookNotifier(cfg.PublishWebhookURL, logging); webhook != nil {
		notifier = webhook
	}
	lifecycle := services.NewLifecycleService(store, notifier, logging)
	trigger := services.NewTriggerService(lifecycle, cfg.ReconcileTimeout, logging)
	calendar := services.NewCalendarService(store, lifecycle, campaignStart, cfg.CampaignWeeks, logging)
	seriesNav := services.NewSeriesNavService(store, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "inkwell"})
	})

	// Setup Routes
	setupPostRoutes(router, store, seriesNav, logging)
	setupPublishingRoutes(router, lifecycle, trigger, logging)
	setupCalendarRoutes(router, calendar, logging)
	setupSeriesRoutes(router, store, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled publication check...")
		report, err := trigger.Run(context.Background())
		triggerRunsCounter.Inc()
		if err != nil {
			logging.Error("Publication trigger run failed", zap.Error(err))
			return
		}
		postsPublishedCounter.Add(float64(report.Published))
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupPostRoutes(router *gin.Engine, store *storage.GormStore, seriesNav *services.SeriesNavService, log *zap.Logger) {
	rg := router.Group("/posts")

	// POST - Create a new draft
	rg.POST("/", func(c *gin.Context) {
		var post models.Post
		if err := c.ShouldBindJSON(&post); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if post.Title == "" || post.Slug == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title and slug are required"})
			return
		}
		if err := store.CreatePost(c.Request.Context(), &post); err != nil {
			log.Error("Failed to create post", zap.Error(err))
			respondServiceError(c, err)
			return
		}
		log.Info("Post created", zap.Uint("id", post.ID), zap.String("slug", post.Slug))
		c.JSON(http.StatusCreated, post)
	})

	// GET - All posts, unfiltered
	rg.GET("/", func(c *gin.Context) {
		posts, err := store.ListPosts(c.Request.Context())
		if err != nil {
			log.Error("Database query for all posts failed", zap.Error(err))
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, posts)
	})

	// POST - Body-driven filter query
	rg.POST("/query", func(c *gin.Context) {
		var req storage.PostQuery
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		posts, err := store.QueryPosts(c.Request.Context(), req)
		if err != nil {
			log.Error("Database query for posts failed", zap.Error(err))
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, posts)
	})

	// GET - Single post. Published series members carry previous/next
	// navigation for the reading path.
	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		post, err := store.GetPost(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		type PostWithNavigation struct {
			models.Post
			SeriesNavigation *services.SeriesNavigation `json:"series_navigation,omitempty"`
		}
		enriched := PostWithNavigation{Post: post}

		if post.IsPublished() && post.SeriesID != nil {
			nav, err := seriesNav.Resolve(c.Request.Context(), post)
			if err != nil {
				// Navigation failures must not take down the read path, but
				// integrity violations deserve more than a debug line.
				log.Warn("Failed to resolve series navigation",
					zap.Uint("id", post.ID),
					zap.String("code", services.CodeOf(err)),
					zap.Error(err))
			} else {
				enriched.SeriesNavigation = &nav
			}
		}

		c.JSON(http.StatusOK, enriched)
	})

	// PUT - Update content fields. Lifecycle fields are owned by the
	// publishing endpoints and rejected here.
	rg.PUT("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var updates map[string]any
		if err := c.ShouldBindJSON(&updates); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		for _, field := range []string{"status", "scheduled_for", "published_at", "id"} {
			if _, found := updates[field]; found {
				c.JSON(http.StatusBadRequest, gin.H{"error": "field " + field + " cannot be updated here"})
				return
			}
		}
		if len(updates) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No updatable fields provided"})
			return
		}
		post, err := store.UpdatePostFields(c.Request.Context(), id, updates)
		if err != nil {
			log.Error("Failed to update post", zap.Uint("id", id), zap.Error(err))
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, post)
	})
}

func setupPublishingRoutes(router *gin.Engine, lifecycle *services.LifecycleService, trigger *services.TriggerService, log *zap.Logger) {
	rg := router.Group("/publishing")

	// POST - Schedule a post for a future date
	rg.POST("/posts/:id/schedule", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req struct {
			ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'scheduled_for' field is required."})
			return
		}
		post, err := lifecycle.Schedule(c.Request.Context(), id, req.ScheduledFor)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":            post.ID,
			"status":        post.Status,
			"scheduled_for": post.ScheduledFor,
		})
	})

	// POST - Publish immediately
	rg.POST("/posts/:id/publish", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		post, err := lifecycle.PublishNow(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		postsPublishedCounter.Inc()
		c.JSON(http.StatusOK, gin.H{
			"id":           post.ID,
			"status":       post.Status,
			"published_at": post.PublishedAt,
		})
	})

	// POST - Run the publication trigger on demand (same reconciliation the
	// cron job performs)
	rg.POST("/run", func(c *gin.Context) {
		report, err := trigger.Run(c.Request.Context())
		triggerRunsCounter.Inc()
		if err != nil {
			log.Error("On-demand trigger run failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "failed to read scheduled posts",
				"code":    services.CodeOf(err),
			})
			return
		}
		postsPublishedCounter.Add(float64(report.Published))
		c.JSON(http.StatusOK, gin.H{
			"success":         true,
			"published_count": report.Published,
			"attempted":       report.Attempted,
			"skipped":         report.Skipped,
			"errors":          report.Failed,
		})
	})
}

func setupCalendarRoutes(router *gin.Engine, calendar *services.CalendarService, log *zap.Logger) {
	rg := router.Group("/calendar")

	// GET - Week-by-week projection of the campaign window
	rg.GET("/", func(c *gin.Context) {
		projection, err := calendar.Project(c.Request.Context())
		if err != nil {
			log.Error("Calendar projection failed", zap.Error(err))
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, projection)
	})

	// POST - Move a post to a different date/week
	rg.POST("/reschedule", func(c *gin.Context) {
		var req struct {
			ID      uint      `json:"id" binding:"required"`
			NewDate time.Time `json:"new_date" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'id' and 'new_date' are required."})
			return
		}
		post, err := calendar.Reschedule(c.Request.Context(), req.ID, req.NewDate)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":            post.ID,
			"status":        post.Status,
			"scheduled_for": post.ScheduledFor,
		})
	})
}

func setupSeriesRoutes(router *gin.Engine, store *storage.GormStore, log *zap.Logger) {
	rg := router.Group("/series")

	rg.POST("/", func(c *gin.Context) {
		var series models.Series
		if err := c.ShouldBindJSON(&series); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if series.Name == "" || series.Slug == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and slug are required"})
			return
		}
		if err := store.CreateSeries(c.Request.Context(), &series); err != nil {
			log.Error("Failed to create series", zap.Error(err))
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, series)
	})

	rg.GET("/", func(c *gin.Context) {
		series, err := store.ListSeries(c.Request.Context())
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, series)
	})

	// GET - Series detail with its published members in reading order
	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		series, err := store.GetSeries(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		posts, err := store.ListSeriesPublished(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"series": series, "posts": posts})
	})
}

// respondServiceError maps service error codes onto HTTP statuses and keeps
// the code in the payload for API clients.
func respondServiceError(c *gin.Context, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Code {
	case services.CodeNotFound:
		status = http.StatusNotFound
	case services.CodePastSchedule, services.CodeInvalidTransition:
		status = http.StatusBadRequest
	case services.CodeAlreadyPublished, services.CodeConcurrentModification:
		status = http.StatusConflict
	case services.CodeNotInPublishedSet, services.CodeSeriesOrderConflict:
		status = http.StatusUnprocessableEntity
	case services.CodePersistenceUnavailable:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": svcErr.Message, "code": svcErr.Code})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
