package main

import (
	"flag"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"palmer/internal/transfer"
	"palmer/pkg/logging"
)

func main() {
	var (
		addr     = flag.String("addr", ":9000", "listen address")
		dataPath = flag.String("data", "data/mirror.json", "mirror file written by export-mirror")
	)
	flag.Parse()

	log := logging.Must("info", "console")
	defer func() { _ = log.Sync() }()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(logging.GinMiddleware(log))
	r.GET("/api/hackathons", transfer.MirrorHandler(*dataPath))

	log.Info("mirror server listening", zap.String("addr", *addr), zap.String("data", *dataPath))
	if err := r.Run(*addr); err != nil {
		log.Fatal("mirror server stopped", zap.Error(err))
	}
}
