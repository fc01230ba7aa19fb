package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/abel4moyo/zimnat-api-sub003/config"
	"github.com/abel4moyo/zimnat-api-sub003/internal/app"
)

var (
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	conffile = flag.String("c", "/etc/zimnat.yml", "config file")
	initdb   = flag.Bool("initdb", false, "drop and recreate the database schema")
)

var version = "dev"

func main() {
	flag.Parse()
	if *h {
		flag.Usage()
		os.Exit(0)
	}
	if *showVer {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg := config.LoadConfig(*conffile)
	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	zap.L().Info("zimnat rating core started",
		zap.String("version", version),
		zap.String("appid", cfg.System.Appid))

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	zap.L().Info("shutting down")
}
