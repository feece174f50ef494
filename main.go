package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"auto_fairy_tale_writer/book"
	"auto_fairy_tale_writer/generator"
	"auto_fairy_tale_writer/server"
)

const defaultOutputName = "Fairy tales.pdf"

var verbose bool

type cliOptions struct {
	topics string
	key    string
	model  string
	out    string
	serve  bool
	addr   string
	mock   bool
}

func main() {
	var opts cliOptions
	flag.StringVar(&opts.topics, "topics", "", "comma-separated topics for the fairy tales (prompted for when omitted)")
	flag.StringVar(&opts.key, "key", "", "OpenAI API key; may be omitted if OPENAI_API_KEY is set")
	flag.StringVar(&opts.model, "model", "", "model override for the storyteller agent")
	flag.StringVar(&opts.out, "out", defaultOutputName, "output PDF path")
	flag.BoolVar(&opts.serve, "serve", false, "start web server")
	flag.StringVar(&opts.addr, "addr", ":8080", "http listen address when --serve")
	flag.BoolVar(&opts.mock, "mock", false, "use the built-in mock service instead of OpenAI")
	flag.BoolVar(&verbose, "v", false, "enable debug logs")
	flag.Parse()

	initLogger()

	if err := run(opts); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func run(opts cliOptions) error {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	settings, err := generator.LoadSettings()
	if err != nil {
		return err
	}
	if opts.key != "" {
		settings.APIKey = opts.key
	}
	if opts.model != "" {
		settings.Model = opts.model
	}

	svc, err := buildService(settings, opts.mock)
	if err != nil {
		return err
	}

	if opts.serve {
		return serveHTTP(svc, opts.addr, settings)
	}

	topics := generator.SplitTopics(opts.topics)
	if len(topics) == 0 {
		var ok bool
		if topics, ok = promptTopics(); !ok {
			return nil
		}
	}

	profile := generator.DefaultProfile()
	profile.Model = settings.Model
	teller, err := generator.NewStoryteller(svc, topics,
		generator.WithPollInterval(settings.PollInterval),
		generator.WithProfile(profile),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("Starting ChatGPT Assistant...")
	if err := teller.Start(ctx); err != nil {
		return err
	}
	defer func() {
		log.Info().Msg("Stopping ChatGPT Assistant...")
		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := teller.Shutdown(cctx); err != nil {
			log.Warn().Err(err).Msg("agent cleanup failed")
		}
	}()

	log.Info().Int("topics", len(topics)).Msg("Generating text...")
	stories, err := teller.WriteStories(ctx)
	if err != nil {
		return err
	}
	if len(stories) == 0 {
		return errors.New("no stories were generated")
	}

	log.Info().Msg("Saving PDF...")
	return book.NewBuilder().RenderFile(stories, opts.out)
}

// promptTopics asks on stdin; ok is false when the user bailed out with EOF.
func promptTopics() (topics []string, ok bool) {
	fmt.Print("Enter topics separated by commas: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && strings.TrimSpace(line) == "" {
		fmt.Println("\nExiting...")
		return nil, false
	}
	return generator.SplitTopics(line), true
}

func buildService(settings generator.Settings, mock bool) (generator.ConversationService, error) {
	if mock {
		return &generator.MockService{}, nil
	}
	return generator.NewOpenAIService(settings)
}

func serveHTTP(svc generator.ConversationService, addr string, settings generator.Settings) error {
	srv, err := server.New(svc)
	if err != nil {
		return err
	}
	srv.PollInterval = settings.PollInterval
	profile := generator.DefaultProfile()
	profile.Model = settings.Model
	srv.Profile = profile

	httpSrv := &http.Server{Addr: addr, Handler: srv.Routes()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("Starting web server")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
