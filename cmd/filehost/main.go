//go:build linux

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/indigo-web/filehost"
	"github.com/indigo-web/filehost/config"
	"github.com/sirupsen/logrus"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [port]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	cfg := config.Default()

	flag.Usage = usage
	root := flag.String("root", cfg.FS.Root, "directory to serve files from")
	index := flag.String("index", cfg.FS.Index, "file served for the / target")
	level := flag.String("log-level", "info", "one of: debug, info, warn, error")
	jsonLogs := flag.Bool("log-json", false, "emit logs as JSON")
	flag.Parse()

	switch flag.NArg() {
	case 0:
	case 1:
		port, err := strconv.Atoi(flag.Arg(0))
		if err != nil || port <= 0 || port > 65535 {
			usage()
			os.Exit(1)
		}

		cfg.NET.Port = port
	default:
		usage()
		os.Exit(1)
	}

	cfg.FS.Root = *root
	cfg.FS.Index = *index

	log := logrus.New()
	lvl, err := logrus.ParseLevel(*level)
	if err != nil {
		log.WithError(err).Fatal("bad log level")
	}
	log.SetLevel(lvl)
	if *jsonLogs {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	app := filehost.New(cfg).Logger(log)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		log.WithField("signal", sig).Info("received signal, stopping")
		app.Stop()
	}()

	if err = app.Serve(); err != nil {
		os.Exit(1)
	}
}
