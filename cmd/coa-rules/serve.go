package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gocoa/ruleengine"
	"github.com/gocoa/ruleengine/engine"
)

// evaluateRequest is the wire form of one evaluation request.
type evaluateRequest struct {
	Date     string `json:"date" binding:"required"`
	SegmentA string `json:"segmentA" binding:"required"`
	CodeA    string `json:"codeA" binding:"required"`
	SegmentB string `json:"segmentB" binding:"required"`
	CodeB    string `json:"codeB" binding:"required"`
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rule evaluation over HTTP for the portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			source, closeFn, err := openSource(logger)
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}

			// A shared service evaluates the same candidates repeatedly;
			// memoization is safe because decisions are keyed by
			// snapshot version.
			ev := engine.New(source, source, source, ruleengine.ServeOptions()...)

			router := newRouter(ev, logger)
			logger.Info("serving rule evaluation", zap.String("addr", addr))
			return router.Run(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func newRouter(ev *engine.Evaluator, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	v1 := router.Group("/v1")
	v1.POST("/evaluate", handleEvaluate(ev))
	v1.GET("/effective", handleEffective(ev))
	v1.GET("/metrics", handleMetrics(ev))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func handleEvaluate(ev *engine.Evaluator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req evaluateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		on, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}

		exp := ev.Explain(c.Request.Context(), engine.Request{
			Date:       on,
			SegmentAID: req.SegmentA, CodeA: req.CodeA,
			SegmentBID: req.SegmentB, CodeB: req.CodeB,
		})
		c.JSON(http.StatusOK, exp)
	}
}

func handleEffective(ev *engine.Evaluator) gin.HandlerFunc {
	return func(c *gin.Context) {
		on := time.Now()
		if s := c.Query("date"); s != "" {
			parsed, err := time.Parse(dateLayout, s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
				return
			}
			on = parsed
		}
		entries := ev.ProjectEffectiveEntries(c.Request.Context(), on)
		c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
	}
}

func handleMetrics(ev *engine.Evaluator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ev.Metrics().Snapshot())
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
