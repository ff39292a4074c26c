package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Joseda-hg/taskdock/internal/app"
	"github.com/Joseda-hg/taskdock/internal/config"
	"github.com/Joseda-hg/taskdock/internal/logging"
)

var errNotLoggedIn = errors.New("not logged in, run `taskdock login` first")

// loadConfig reads the config file, writes it on first run and applies the
// persistent flags on top.
func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return config.Config{}, err
		}
		path = defaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Resolve(path); err != nil {
		return config.Config{}, err
	}
	if err := config.SaveIfMissing(path, cfg); err != nil {
		return config.Config{}, fmt.Errorf("write config: %w", err)
	}

	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	if statePath != "" {
		cfg.StatePath = statePath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

type env struct {
	App *app.App
	log io.Closer
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.Open(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("open state: %w", err)
	}
	return &env{App: a, log: closer}, nil
}

// openSession is openEnv plus a validated sign-in. The collections are
// loaded by the time it returns.
func openSession(cmd *cobra.Command) (*env, error) {
	e, err := openEnv(cmd)
	if err != nil {
		return nil, err
	}
	e.App.Start(cmd.Context())
	if !e.App.Session.IsAuthenticated() {
		_ = e.Close()
		return nil, errNotLoggedIn
	}
	return e, nil
}

func (e *env) Close() error {
	return errors.Join(e.App.Close(), e.log.Close())
}

type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{in: in, reader: bufio.NewReader(in), out: cmd.ErrOrStderr()}
}

func (p *prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	value, err := p.readLine()
	return strings.TrimSpace(value), err
}

// password reads without echo on a terminal and falls back to a plain line
// for piped input.
func (p *prompter) password(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if file, ok := p.in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		secret, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(p.out)
		return string(secret), err
	}
	return p.readLine()
}
