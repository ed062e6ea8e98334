package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcraft/packages/archive"
	"github.com/abdul-hamid-achik/httpcraft/packages/capture"
	"github.com/abdul-hamid-achik/httpcraft/packages/core/config"
	"github.com/abdul-hamid-achik/httpcraft/packages/core/env"
	"github.com/abdul-hamid-achik/httpcraft/packages/core/state"
	"github.com/abdul-hamid-achik/httpcraft/packages/craft"
	"github.com/abdul-hamid-achik/httpcraft/packages/csrf"
	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
	"github.com/abdul-hamid-achik/httpcraft/packages/http"
	"github.com/abdul-hamid-achik/httpcraft/packages/output"
	"github.com/abdul-hamid-achik/httpcraft/packages/persist"
)

// autoSave is the --save value used when the flag has no argument.
const autoSave = "auto"

var sendCmd = &cobra.Command{
	Use:   "send <method> <url|path>",
	Short: "Send one request and print the exchange",
	Long: `Send one request built from headers, cookies and a payload.

The URL may be a path when --load-state provides the target. State saved
with --save-state keeps cookies, including CSRF tokens picked up from HTML
forms, for the next run.

Examples:
  httpcraft send GET http://localhost:5000/form --csrf input --save-state s.json
  httpcraft send POST /submit --load-state s.json --form -d username=admin
  httpcraft send POST https://api.example.com/users --json -d name=ada -H Accept:application/json
  httpcraft send GET https://example.com/logo.png --save
  httpcraft send GET https://api.example.com/me --extract id=body:user.id
  httpcraft send GET https://api.example.com/me -H "Authorization:{{AUTHORIZATION}}" --env-file .env`,
	Args: cobra.ExactArgs(2),
	RunE: sendCommand,
}

var (
	headerFlags    []string
	cookieFlags    []string
	dataFlags      []string
	jsonFlag       bool
	formFlag       bool
	csrfFlag       string
	csrfFieldFlag  string
	saveFlag       string
	extractFlags   []string
	configFlag     string
	loadStateFlag  string
	saveStateFlag  string
	historyOutFlag string
	redactFlag     bool
	archiveFlag    string
	rateFlag       float64
	timeoutFlag    string
	proxyFlag      string
	insecureFlag   bool
	portFlag       int
	repeatFlag     int
	outputFlag     string
	verboseFlag    bool
	noColorFlag    bool
	failFlag       bool
	truncateFlag   int
	envFileFlag    string
)

func init() {
	sendCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "Request header as key:value (repeatable)")
	sendCmd.Flags().StringArrayVarP(&cookieFlags, "cookie", "c", nil, "Cookie as name=value (repeatable)")
	sendCmd.Flags().StringArrayVarP(&dataFlags, "data", "d", nil, "Payload field as key=value (repeatable)")
	sendCmd.Flags().BoolVar(&jsonFlag, "json", false, "Send the payload as JSON (default)")
	sendCmd.Flags().BoolVar(&formFlag, "form", false, "Send the payload form encoded")
	sendCmd.MarkFlagsMutuallyExclusive("json", "form")

	sendCmd.Flags().StringVar(&csrfFlag, "csrf", getEnvString("HTTPCRAFT_CSRF", ""), "CSRF extraction mode: none, input, meta (env: HTTPCRAFT_CSRF)")
	sendCmd.Flags().StringVar(&csrfFieldFlag, "csrf-field", getEnvString("HTTPCRAFT_CSRF_FIELD", ""), "CSRF token field name (env: HTTPCRAFT_CSRF_FIELD)")

	sendCmd.Flags().StringVar(&saveFlag, "save", "", "Save the response body to a file (derived name when no path is given)")
	sendCmd.Flags().Lookup("save").NoOptDefVal = autoSave
	sendCmd.Flags().StringArrayVar(&extractFlags, "extract", nil, "Extract a value as name=source:path (source: body, header, status, duration, cookie)")

	sendCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("HTTPCRAFT_ENV_FILE", ""), "Variables for {{name}} placeholders, as a .env file (env: HTTPCRAFT_ENV_FILE)")
	sendCmd.Flags().StringVar(&configFlag, "config", getEnvString("HTTPCRAFT_CONFIG", ""), "Path to settings file (env: HTTPCRAFT_CONFIG)")
	sendCmd.Flags().StringVar(&loadStateFlag, "load-state", getEnvString("HTTPCRAFT_STATE", ""), "Load target, headers, cookies and payload from a state file (env: HTTPCRAFT_STATE)")
	sendCmd.Flags().StringVar(&saveStateFlag, "save-state", "", "Write target, headers, cookies and payload after the exchange")
	sendCmd.Flags().StringVar(&historyOutFlag, "history-out", "", "Write the exchanges of this run as a history document")
	sendCmd.Flags().BoolVar(&redactFlag, "redact", getEnvBool("HTTPCRAFT_REDACT", false), "Replace sensitive header values in --history-out (env: HTTPCRAFT_REDACT)")
	sendCmd.Flags().StringVar(&archiveFlag, "archive", getEnvString("HTTPCRAFT_ARCHIVE", ""), "SQLite archive to record exchanges in (env: HTTPCRAFT_ARCHIVE)")

	sendCmd.Flags().Float64Var(&rateFlag, "rate", getEnvFloat("HTTPCRAFT_RATE", 0), "Maximum requests per second (env: HTTPCRAFT_RATE)")
	sendCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HTTPCRAFT_TIMEOUT", ""), "Request timeout (e.g., 30s, 1m) (env: HTTPCRAFT_TIMEOUT)")
	sendCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HTTPCRAFT_PROXY", ""), "Proxy URL for HTTP requests (env: HTTPCRAFT_PROXY)")
	sendCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HTTPCRAFT_INSECURE", false), "Disable SSL certificate validation (env: HTTPCRAFT_INSECURE)")
	sendCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Override the target port for this request")
	sendCmd.Flags().IntVarP(&repeatFlag, "repeat", "n", 1, "Send the request n times and print timing statistics")
	sendCmd.Flags().BoolVar(&failFlag, "fail", false, "Exit with a non-zero code on 4xx and 5xx responses")

	sendCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HTTPCRAFT_OUTPUT", "console"), "Output format: console, json (env: HTTPCRAFT_OUTPUT)")
	sendCmd.Flags().IntVar(&truncateFlag, "truncate", 0, "Truncate text bodies after n characters (0 uses the settings file)")
	sendCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("HTTPCRAFT_VERBOSE", false), "Log engine events to stderr (env: HTTPCRAFT_VERBOSE)")
	sendCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HTTPCRAFT_NO_COLOR", false), "Disable colored output (env: HTTPCRAFT_NO_COLOR)")

	sendCmd.ValidArgsFunction = completeSendArgs
	_ = sendCmd.RegisterFlagCompletionFunc("csrf", fixedCompletions(
		string(csrf.ModeNone), string(csrf.ModeInput), string(csrf.ModeMeta)))
	_ = sendCmd.RegisterFlagCompletionFunc("output", fixedCompletions(outputFormats...))
}

// newLogger returns a console logger on stderr when verbose, a no-op
// logger otherwise.
func newLogger(verbose, noColor bool) zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

func sendCommand(cmd *cobra.Command, args []string) error {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("loading settings: %w", err))
	}

	verbose := verboseFlag || fileConfig.GetVerbose()
	noColor := noColorFlag || fileConfig.GetNoColor()
	logger := newLogger(verbose, noColor)

	httpOpts := fileConfig.HTTPOptions()
	if timeoutFlag != "" {
		timeout, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err))
		}
		httpOpts = append(httpOpts, http.WithTimeout(timeout))
	}
	if proxyFlag != "" {
		httpOpts = append(httpOpts, http.WithProxy(proxyFlag))
	}
	if insecureFlag {
		httpOpts = append(httpOpts, http.WithValidateSSL(false))
	}
	if rateFlag > 0 {
		httpOpts = append(httpOpts, http.WithRateLimit(rateFlag, 1))
	}

	expander, err := newExpander(logger)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	opts := []craft.Option{
		craft.WithHTTPOptions(httpOpts...),
		craft.WithLogger(logger),
		craft.WithResponsesDir(fileConfig.ResponsesDir),
		craft.WithExpander(expander),
	}

	archivePath := archiveFlag
	if archivePath == "" {
		archivePath = fileConfig.Archive
	}
	if archivePath != "" {
		a, err := archive.Open(archivePath)
		if err != nil {
			return withExitCode(ExitPersistenceError, err)
		}
		opts = append(opts, craft.WithArchive(a))
	}

	client, err := craft.New("", opts...)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	defer client.Close()

	if err := client.SetCSRF(fileConfig.CSRFMode, fileConfig.CSRFField); err != nil {
		return withExitCode(ExitConfigError, err)
	}
	if loadStateFlag != "" {
		if err := client.LoadConfig(loadStateFlag); err != nil {
			return withExitCode(ExitPersistenceError, err)
		}
	}
	if err := applyFlags(client); err != nil {
		return withExitCode(ExitUsageError, err)
	}

	path, err := resolveTarget(client, args[1])
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sendOpts []craft.SendOption
	if portFlag > 0 {
		sendOpts = append(sendOpts, craft.WithPort(portFlag))
	}

	var exs []*exchange.Exchange
	for i := 0; i < max(repeatFlag, 1); i++ {
		ex, err := client.Send(ctx, args[0], path, sendOpts...)
		if err != nil {
			if errors.Is(err, craft.ErrTransport) {
				return withExitCode(ExitNetworkError, err)
			}
			return withExitCode(ExitUsageError, err)
		}
		exs = append(exs, ex)
	}
	last := exs[len(exs)-1]

	truncate := fileConfig.TruncateBody
	if truncateFlag > 0 {
		truncate = truncateFlag
	}
	if err := printExchanges(cmd.OutOrStdout(), client, exs, noColor, truncate); err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(extractFlags) > 0 {
		if err := printCaptures(cmd.OutOrStdout(), last, noColor); err != nil {
			return withExitCode(ExitUsageError, err)
		}
	}

	if err := writeFiles(cmd.ErrOrStderr(), client, last, noColor); err != nil {
		return withExitCode(ExitPersistenceError, err)
	}

	if failFlag && last.Response.StatusCode >= 400 {
		return withExitCode(ExitHTTPError, fmt.Errorf("server answered %d", last.Response.StatusCode))
	}
	return nil
}

// newExpander merges --env-file variables with HTTPCRAFT_VAR_* ones. The
// process environment wins.
func newExpander(logger zerolog.Logger) (*env.Expander, error) {
	var fileVars map[string]string
	if envFileFlag != "" {
		var err error
		if fileVars, err = env.LoadDotEnv(envFileFlag); err != nil {
			return nil, err
		}
	}
	return env.NewExpander(
		env.WithVars(fileVars),
		env.WithVars(env.FromEnviron(env.VarPrefix)),
		env.WithLogger(logger),
	), nil
}

// applyFlags layers command line state on whatever the state file loaded.
func applyFlags(client *craft.Client) error {
	if csrfFlag != "" || csrfFieldFlag != "" {
		mode := csrfFlag
		if mode == "" {
			mode = string(client.CSRFMode())
		}
		field := csrfFieldFlag
		if field == "" {
			field = client.CSRFField()
		}
		if err := client.SetCSRF(mode, field); err != nil {
			return err
		}
	}

	st := client.State()
	for _, h := range headerFlags {
		key, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("invalid header %q (use key:value)", h)
		}
		st.SetHeader(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for _, c := range cookieFlags {
		name, value, ok := strings.Cut(c, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid cookie %q (use name=value)", c)
		}
		st.AddCookie(name, value)
	}

	if len(dataFlags) == 0 && !jsonFlag && !formFlag {
		return nil
	}
	payload := st.Payload()
	for _, d := range dataFlags {
		key, value, ok := strings.Cut(d, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid payload field %q (use key=value)", d)
		}
		payload[key] = value
	}
	mode := st.PayloadMode()
	switch {
	case formFlag:
		mode = state.ModeForm
	case jsonFlag:
		mode = state.ModeJSON
	}
	return st.SetPayload(payload, mode)
}

// resolveTarget sets the target from an absolute URL and returns the path
// to request. A bare path keeps the loaded target.
func resolveTarget(client *craft.Client, raw string) (string, error) {
	if strings.HasPrefix(raw, "/") {
		tgt := client.Target()
		if !tgt.IsSet() {
			return "", fmt.Errorf("%q is a path but no target is loaded (use --load-state or a full URL)", raw)
		}
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if err := client.SetTarget(u.Scheme + "://" + u.Host); err != nil {
		return "", err
	}

	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path, nil
}

func printExchanges(w io.Writer, client *craft.Client, exs []*exchange.Exchange, noColor bool, truncate int) error {
	if outputFlag == "json" {
		f := output.NewJSONFormatter(output.WithJSONWriter(w))
		if len(exs) == 1 {
			return f.FormatExchange(exs[0])
		}
		return f.FormatHistory(exs)
	}

	console := output.NewConsoleFormatter(
		output.WithWriter(w),
		output.WithNoColor(noColor),
		output.WithTruncate(truncate),
	)
	if len(exs) == 1 {
		console.FormatExchange(exs[0])
		return nil
	}
	console.FormatHistory(exs)
	console.FormatStats(client.Stats())
	return nil
}

func printCaptures(w io.Writer, ex *exchange.Exchange, noColor bool) error {
	captures := make([]*capture.Capture, 0, len(extractFlags))
	for _, spec := range extractFlags {
		c, err := capture.ParseSpec(spec)
		if err != nil {
			return err
		}
		captures = append(captures, c)
	}
	values := capture.ExtractAll(ex, captures)

	if outputFlag == "json" {
		return output.NewJSONFormatter(output.WithJSONWriter(w)).FormatValues(values)
	}
	output.NewConsoleFormatter(output.WithWriter(w), output.WithNoColor(noColor)).FormatValues(values)
	return nil
}

func writeFiles(w io.Writer, client *craft.Client, last *exchange.Exchange, noColor bool) error {
	console := output.NewConsoleFormatter(output.WithWriter(w), output.WithNoColor(noColor))

	if saveFlag != "" {
		path := saveFlag
		if path == autoSave {
			path = ""
		}
		written, err := client.SaveResponse(last, path)
		if err != nil {
			return err
		}
		console.FormatSuccess("Response saved to " + written)
	}

	if historyOutFlag != "" {
		var histOpts []persist.HistoryOption
		if redactFlag {
			histOpts = append(histOpts, persist.WithRedaction(persist.DefaultRedactedHeaders...))
		}
		if err := client.SaveHistory(historyOutFlag, histOpts...); err != nil {
			return err
		}
		console.FormatSuccess("History written to " + historyOutFlag)
	}

	if saveStateFlag != "" {
		if err := client.SaveConfig(saveStateFlag); err != nil {
			return err
		}
		console.FormatSuccess("State saved to " + saveStateFlag)
	}
	return nil
}
