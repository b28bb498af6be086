package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/Dev72112/xlamaexchange/internal/allowance"
	"github.com/Dev72112/xlamaexchange/internal/chainstatus"
	"github.com/Dev72112/xlamaexchange/internal/config"
	"github.com/Dev72112/xlamaexchange/internal/engine"
	"github.com/Dev72112/xlamaexchange/internal/httpx"
	"github.com/Dev72112/xlamaexchange/internal/model"
	"github.com/Dev72112/xlamaexchange/internal/poller"
	"github.com/Dev72112/xlamaexchange/internal/quote"
	"github.com/Dev72112/xlamaexchange/internal/registry"
	"github.com/Dev72112/xlamaexchange/internal/wallet"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

// executionEnv is everything the swap and bridge commands share.
type executionEnv struct {
	settings config.Settings
	signer   wallet.Signer
	provider quote.Provider
	reader   *allowance.RPCReader
	chain    chainstatus.Source
	journal  *engine.Journal
}

func buildExecutionEnv(settings config.Settings) (*executionEnv, error) {
	signer, err := wallet.NewLocalSignerFromEnv()
	if err != nil {
		return nil, xerr.Wrap(xerr.CodeUsage, "load signing key", err)
	}
	journal, err := engine.OpenJournal(settings.JournalPath)
	if err != nil {
		slog.Warn("execution journal unavailable", "error", err)
		journal = nil
	}
	httpClient := httpx.New(settings.Timeout, settings.Retries)
	return &executionEnv{
		settings: settings,
		signer:   signer,
		provider: quote.NewClient(httpClient),
		reader:   allowance.NewRPCReader(settings.RPCURL),
		chain:    chainstatus.NewRPCSource(settings.RPCURL),
		journal:  journal,
	}, nil
}

func (env *executionEnv) Close() {
	if env.journal != nil {
		_ = env.journal.Close()
	}
}

func (env *executionEnv) swapDeps() engine.SwapDeps {
	return engine.SwapDeps{
		Allowance: allowance.NewManager(env.reader),
		Provider:  env.provider,
		Signer:    env.signer,
		Chain:     env.chain,
		Funds:     env.reader,
		Journal:   env.journal,
		Logger:    slog.Default(),
		Poll: poller.Options{
			Interval:    env.settings.SwapPollEvery,
			MaxAttempts: env.settings.SwapPollMax,
		},
	}
}

func (env *executionEnv) bridgeDeps(confirm engine.ConfirmApprovalFunc) engine.BridgeDeps {
	return engine.BridgeDeps{
		Allowance:       allowance.NewManager(env.reader),
		Provider:        env.provider,
		Signer:          env.signer,
		Chain:           env.chain,
		Funds:           env.reader,
		Journal:         env.journal,
		Logger:          slog.Default(),
		ConfirmApproval: confirm,
		SourcePoll: poller.Options{
			Interval:    env.settings.SwapPollEvery,
			MaxAttempts: env.settings.SwapPollMax,
		},
		BridgePoll: poller.Options{
			Interval:    env.settings.BridgePollEvery,
			MaxAttempts: env.settings.BridgePollMax,
		},
	}
}

// parseToken reads "ADDRESS:SYMBOL:DECIMALS", e.g.
// "0xA0b8...eB48:USDC:6". Decimals may be omitted only when unknown, which
// blocks approvals for that token.
func parseToken(raw string) (model.Token, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 {
		return model.Token{}, xerr.New(xerr.CodeUsage, "token format is ADDRESS:SYMBOL:DECIMALS")
	}
	token := model.Token{Address: parts[0], Symbol: strings.ToUpper(parts[1]), Decimals: -1}
	if len(parts) >= 3 {
		var decimals int
		if _, err := fmt.Sscanf(parts[2], "%d", &decimals); err != nil || decimals < 0 || decimals > 36 {
			return model.Token{}, xerr.New(xerr.CodeUsage, "token decimals must be between 0 and 36")
		}
		token.Decimals = decimals
	}
	return token, nil
}

func parseApprovalType(raw string) (model.ApprovalType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "exact":
		return model.ApprovalExact, nil
	case "unlimited":
		return model.ApprovalUnlimited, nil
	case "custom":
		return model.ApprovalCustom, nil
	}
	return "", xerr.New(xerr.CodeUsage, fmt.Sprintf("unknown approval type %q", raw))
}

func resolveChainID(slugOrID string) (int64, error) {
	chain, err := registry.ChainBySlug(slugOrID)
	if err == nil {
		return chain.ChainID, nil
	}
	var id int64
	if _, serr := fmt.Sscanf(slugOrID, "%d", &id); serr == nil && id > 0 {
		return id, nil
	}
	return 0, err
}

// stepSpinner renders executor progress for interactive runs.
type stepSpinner struct {
	s       *spinner.Spinner
	enabled bool
}

func newStepSpinner(enabled bool) *stepSpinner {
	return &stepSpinner{
		s:       spinner.New(spinner.CharSets[14], 100*time.Millisecond),
		enabled: enabled,
	}
}

func (sp *stepSpinner) show(label string) {
	if !sp.enabled {
		return
	}
	sp.s.Stop()
	sp.s.Suffix = " " + label
	sp.s.Start()
}

func (sp *stepSpinner) stop() {
	if sp.enabled {
		sp.s.Stop()
	}
}

func printTerminalError(category, message string) {
	if message == "" {
		message = "execution did not complete"
	}
	color.Red("Failed (%s): %s", category, message)
}

func explorerLink(chainID int64, txHash string) string {
	if url := registry.ExplorerTxURL(chainID, txHash); url != "" {
		return url
	}
	return txHash
}
