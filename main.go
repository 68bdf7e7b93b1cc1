package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	configFilePath := flag.String("c", "", "path to a config.jsonc file, built-in defaults are used when empty")
	listenPort := flag.String("p", "", "port to listen on, overrides ListenPort from the config file")
	flag.Parse()

	config, err := resolveConfig(*configFilePath, *listenPort)
	if err != nil {
		FprintfError("Error loading config:\n%v\n", err)
		os.Exit(1)
	}

	log.SetOutput(os.Stdout)

	acceptor, err := newAcceptor(config)
	if err != nil {
		FprintfError("Fatal error: cannot listen on %s: %v\n", config.listenAddress(), err)
		os.Exit(1)
	}

	srv := newServer(config, acceptor, newServerMetrics())
	if config.ManagementApi.ListenPort != "" {
		go startManagementApi(config, srv)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		receivedSignal := <-exit
		log.Printf("[Server] Received %s signal, closing listener", signalToString(receivedSignal))
		cancel()
	}()

	if err := srv.Serve(ctx); err != nil {
		log.Fatalf("[Server] Fatal error: %v", err)
	}
	log.Printf("[Server] Done, exiting")
}

// resolveConfig loads the config file when one is given and applies the
// command line port override on top of it.
func resolveConfig(configFilePath string, listenPortOverride string) (Config, error) {
	var config Config
	if configFilePath == "" {
		config = applyDefaults(Config{})
	} else {
		loaded, err := loadConfig(configFilePath)
		if err != nil {
			return loaded, err
		}
		config = loaded
	}
	if listenPortOverride != "" {
		config.ListenPort = listenPortOverride
	}
	return config, validateConfig(config)
}

func signalToString(sig os.Signal) string {
	switch sig {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return sig.String()
	}
}
