// Package workflow drives the policy-enforcement and encrypted
// conditional-execution pipeline through its state machine.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"intent-trader/internal/audit"
	"intent-trader/internal/bite"
	"intent-trader/internal/config"
	"intent-trader/internal/execution"
	"intent-trader/internal/guard"
	"intent-trader/internal/ledger"
	"intent-trader/internal/logging"
	"intent-trader/internal/models"
	"intent-trader/internal/parser"
	"intent-trader/internal/receipt"
	"intent-trader/internal/x402"
)

// Stage names the states of the run state machine. They exist for logging and
// audit; control flow is carried by the stage outcome types below.
type Stage string

const (
	StageStarted    Stage = "started"
	StageParsed     Stage = "parsed"
	StageValidated  Stage = "validated"
	StageEncrypted  Stage = "encrypted"
	StageMonitoring Stage = "monitoring"
	StageDecrypted  Stage = "decrypted"
	StageRiskPassed Stage = "risk_passed"
	StageExecuted   Stage = "executed"
)

// ConditionChecker is the injected condition-checking collaborator. It
// receives the plaintext validated strategy, may purchase paid signals
// through the session, and returns a one-shot boolean per run.
type ConditionChecker interface {
	CheckConditions(ctx context.Context, s *models.Strategy, signals *SignalSession) (bool, error)
}

// CheckerFunc adapts a function to the ConditionChecker interface.
type CheckerFunc func(ctx context.Context, s *models.Strategy, signals *SignalSession) (bool, error)

// CheckConditions implements ConditionChecker.
func (f CheckerFunc) CheckConditions(ctx context.Context, s *models.Strategy, signals *SignalSession) (bool, error) {
	return f(ctx, s, signals)
}

// RunResult is what one workflow run hands back: exactly one receipt, and the
// encrypted intent when one was produced (including on expired runs, which
// stay auditable even though the trade never fired).
type RunResult struct {
	Receipt *models.ExecutionReceipt
	Intent  *models.EncryptedIntent
}

// Handler owns the pipeline components for a sequence of runs. Encryption key
// material is shared across the handler's lifetime; payment and reasoning
// ledgers are created fresh per run and never shared.
type Handler struct {
	parser   parser.Parser
	enforcer *guard.Enforcer
	risk     *guard.RiskChecker
	codec    *bite.Codec
	executor *execution.Executor
	signer   x402.PaymentSigner
	limits   config.Limits
	budget   decimal.Decimal
	timeout  time.Duration
	audit    *audit.Logger
	logger   zerolog.Logger
}

// NewHandler creates a workflow handler with a fresh encryption key.
func NewHandler(cfg *config.Config, p parser.Parser, signer x402.PaymentSigner, auditLog *audit.Logger, logger zerolog.Logger) (*Handler, error) {
	codec, err := bite.NewCodec()
	if err != nil {
		return nil, err
	}
	return &Handler{
		parser:   p,
		enforcer: guard.NewEnforcer(cfg.Limits),
		risk:     guard.NewRiskChecker(cfg.Limits),
		codec:    codec,
		executor: execution.NewExecutor(cfg.Execution.Simulate),
		signer:   signer,
		limits:   cfg.Limits,
		budget:   cfg.Budget.SignalBudget(),
		timeout:  time.Duration(cfg.Parser.TimeoutSeconds) * time.Second,
		audit:    auditLog,
		logger:   logger,
	}, nil
}

// Codec exposes the handler's intent codec for embedding callers.
func (h *Handler) Codec() *bite.Codec { return h.codec }

// runState carries the artifacts accumulated across stages of one run.
type runState struct {
	runID   string
	prompt  string
	parsed  *parser.Result
	signals *SignalSession
	logger  zerolog.Logger
}

// Run drives one prompt through the full state machine. Every terminal path
// builds exactly one receipt. Parser, decryption and network failures are the
// only cases that abort before a receipt exists.
func (h *Handler) Run(ctx context.Context, userPrompt string, checker ConditionChecker) (*RunResult, error) {
	st := &runState{
		runID:  uuid.NewString(),
		prompt: userPrompt,
	}
	st.logger = logging.WithRunID(h.logger, st.runID)
	st.signals = newSignalSession(h.signer, ledger.New(h.budget), x402.NewClient(h.timeout), h.audit, st.runID)
	st.logger.Debug().Str("stage", string(StageStarted)).Msg("run started")

	// Started -> Parsed. Parser errors propagate unmodified; no retry here.
	parsed, err := h.parser.Parse(ctx, userPrompt, h.limits)
	if err != nil {
		// Parser errors can echo request details, including credentials from a
		// misconfigured endpoint. They are scrubbed before logging.
		st.logger.Error().Str("error", logging.Redact(err.Error())).Msg("parser failed")
		return nil, err
	}
	st.parsed = parsed
	st.logger.Debug().Str("stage", string(StageParsed)).Str("model", parsed.Metadata.Model).Msg("prompt parsed")
	h.audit.LogStage(audit.EventStrategyParsed, st.runID, "", "", true, nil)

	// Parsed -> Validated | Aborted. A strategy that fails validation is
	// never encrypted.
	vr := h.enforcer.ValidateJSON(parsed.StrategyDSL)
	if !vr.Valid {
		st.logger.Warn().Strs("errors", vr.Errors).Msg("strategy rejected by limit enforcer")
		h.audit.LogStage(audit.EventStrategyRejected, st.runID, "", "", false, map[string]interface{}{"errors": vr.Errors})
		return &RunResult{Receipt: h.buildReceipt(st, receiptArgs{
			status:           models.ReceiptAborted,
			validationErrors: vr.Errors,
		})}, nil
	}
	strategy := vr.Strategy
	st.logger = st.logger.With().Str("pair", strategy.Pair).Logger()
	st.logger.Info().Str("stage", string(StageValidated)).Strs("clamped", vr.Clamped).Msg("strategy validated")
	h.audit.LogStage(audit.EventStrategyValidated, st.runID, "", strategy.Pair, true, map[string]interface{}{"clamped": vr.Clamped})

	// Validated -> Encrypted.
	intent, err := h.codec.Encrypt(strategy)
	if err != nil {
		st.logger.Error().Err(err).Msg("sealing intent failed")
		return nil, err
	}
	st.logger = logging.WithIntentID(st.logger, intent.IntentID)
	st.logger.Info().Str("stage", string(StageEncrypted)).Time("expires_at", intent.PublicMetadata.ExpiresAt).Msg("intent sealed")
	h.audit.LogStage(audit.EventIntentSealed, st.runID, intent.IntentID, strategy.Pair, true, nil)

	// Encrypted -> Monitoring. The checker needs real thresholds, so it gets
	// the plaintext validated strategy, never the sealed form.
	h.audit.LogStage(audit.EventMonitoringStarted, st.runID, intent.IntentID, strategy.Pair, true, nil)
	st.logger.Debug().Str("stage", string(StageMonitoring)).Msg("monitoring conditions")
	conditionsMet, err := checker.CheckConditions(ctx, strategy, st.signals)
	if err != nil {
		st.logger.Error().Str("error", logging.Redact(err.Error())).Msg("condition check failed")
		return nil, err
	}

	// Monitoring -> Expired. The intent is still returned; it was produced
	// and should be auditable even though the trade never fires.
	if !conditionsMet {
		st.logger.Info().Msg("conditions not met, intent expired")
		h.audit.LogStage(audit.EventConditionsNotMet, st.runID, intent.IntentID, strategy.Pair, true, nil)
		return &RunResult{
			Receipt: h.buildReceipt(st, receiptArgs{
				status:   models.ReceiptExpired,
				intent:   intent,
				strategy: strategy,
			}),
			Intent: intent,
		}, nil
	}
	h.audit.LogStage(audit.EventConditionsMet, st.runID, intent.IntentID, strategy.Pair, true, nil)

	// ConditionsMet -> Decrypted. Same key that sealed it; tag mismatch is a
	// hard failure, never garbage output.
	decrypted, err := h.codec.Decrypt(intent)
	if err != nil {
		st.logger.Error().Err(err).Msg("opening intent failed")
		return nil, err
	}
	st.logger.Debug().Str("stage", string(StageDecrypted)).Msg("intent opened")
	h.audit.LogStage(audit.EventIntentOpened, st.runID, intent.IntentID, strategy.Pair, true, nil)

	// Decrypted -> RiskPassed | Aborted. Conditions were met but policy can
	// still block execution.
	rr := h.risk.ReCheck(decrypted, intent.PublicMetadata.ExpiresAt)
	if !rr.Passed {
		st.logger.Warn().Strs("violations", rr.Violations).Msg("risk re-check rejected decrypted strategy")
		h.audit.LogStage(audit.EventRiskRejected, st.runID, intent.IntentID, decrypted.Pair, false, map[string]interface{}{"violations": rr.Violations})
		return &RunResult{
			Receipt: h.buildReceipt(st, receiptArgs{
				status:         models.ReceiptAborted,
				intent:         intent,
				strategy:       decrypted,
				conditionsMet:  true,
				riskViolations: rr.Violations,
			}),
			Intent: intent,
		}, nil
	}

	// RiskPassed -> Executed. Total spend is the sum of decrypted action
	// amounts regardless of execution outcome.
	st.logger.Debug().Str("stage", string(StageRiskPassed)).Msg("risk re-check passed")
	res := h.executor.Execute(ctx, decrypted)
	status := models.ReceiptExecuted
	eventType := audit.EventTradeExecuted
	if !res.Success {
		status = models.ReceiptAborted
		eventType = audit.EventTradeAborted
		st.logger.Error().Str("error", res.Error).Msg("execution failed")
	} else {
		st.logger.Info().Str("stage", string(StageExecuted)).Str("tx_ref", res.TxRef).Msg("strategy executed")
	}
	h.audit.LogStage(eventType, st.runID, intent.IntentID, decrypted.Pair, res.Success, map[string]interface{}{"tx_ref": res.TxRef, "error": res.Error})

	return &RunResult{
		Receipt: h.buildReceipt(st, receiptArgs{
			status:        status,
			intent:        intent,
			strategy:      decrypted,
			conditionsMet: true,
			txRef:         res.TxRef,
			totalSpend:    decrypted.TotalSpendUSDC(),
		}),
		Intent: intent,
	}, nil
}

// receiptArgs are the per-terminal-path receipt fields; everything else comes
// from the run state.
type receiptArgs struct {
	status           models.ReceiptStatus
	intent           *models.EncryptedIntent
	strategy         *models.Strategy
	conditionsMet    bool
	txRef            string
	totalSpend       decimal.Decimal
	validationErrors []string
	riskViolations   []string
}

func (h *Handler) buildReceipt(st *runState, args receiptArgs) *models.ExecutionReceipt {
	p := receipt.Params{
		Prompt:           st.prompt,
		Status:           args.status,
		Strategy:         args.strategy,
		Intent:           args.intent,
		ConditionsMet:    args.conditionsMet,
		ExecutionTxRef:   args.txRef,
		TotalSpendUSDC:   args.totalSpend,
		Payments:         st.signals.PaymentRecords(),
		ReasonCodes:      st.signals.ReasonCodes(),
		ValidationErrors: args.validationErrors,
		RiskViolations:   args.riskViolations,
	}
	if args.intent != nil {
		p.IntentID = args.intent.IntentID
	}
	if st.parsed != nil {
		p.ParserExplanation = st.parsed.Explanation
		p.ParserRiskNotes = st.parsed.RiskNotes
		p.ParserMetadata = st.parsed.Metadata
	}
	return receipt.Build(p)
}
