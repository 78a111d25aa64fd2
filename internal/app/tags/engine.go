// Package tags turns bracketed action tags in model output into store
// mutations and strips them from the text the user sees.
//
// Every recognized tag is removed from the output whether or not it parses
// or applies. Singular kinds (spend, store, use, refund, apply-withdraw)
// honor only their last occurrence per response; gift, use-gift and note
// apply every occurrence.
package tags

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tutu-network/pocketmoney/internal/app/isolation"
	"github.com/tutu-network/pocketmoney/internal/domain"
	"github.com/tutu-network/pocketmoney/internal/infra/observability"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config configures the engine.
type Config struct {
	Persona           string // operator recorded on engine-driven transactions
	SeenCapacity      int    // fingerprints remembered for de-duplication
	FingerprintPrefix int    // runes of text hashed into the fingerprint
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Persona:           "Beta",
		SeenCapacity:      1024,
		FingerprintPrefix: 200,
	}
}

// Defaults for missing optional fields.
const (
	DefaultReason       = "unspecified"
	DefaultRefundReason = "refund"
	DefaultDescription  = "no description"
)

// ─── Types ──────────────────────────────────────────────────────────────────

// Router picks the stores for a user and mirrors real-store mutations.
// *isolation.Proxy implements it.
type Router interface {
	Resolve(userID string) (isolation.Scope, error)
	SpendUpTo(amount decimal.Decimal, reason, operator string) (domain.Transaction, error)
	StoreSharedItem(name, description string) error
	UseSharedItem(name string) error
}

// Response is one model completion delivered by the chat framework.
type Response struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Channel   string `json:"channel"`
	Text      string `json:"text"`
}

// Action reports what one tag did.
type Action struct {
	Kind     Kind                  `json:"kind"`
	Outcome  observability.Outcome `json:"outcome"`
	Isolated bool                  `json:"isolated,omitempty"`
	Detail   string                `json:"detail,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// Result is the cleaned text plus what happened.
type Result struct {
	Text      string   `json:"text"`
	Duplicate bool     `json:"duplicate"`
	Actions   []Action `json:"actions"`
}

// ─── Engine ─────────────────────────────────────────────────────────────────

// Engine applies tags. Safe for concurrent use; the stores serialize
// their own mutations.
type Engine struct {
	router  Router
	cfg     Config
	seen    *lru.Cache[string, struct{}]
	journal *observability.Journal
	logger  *zap.Logger
}

// New creates an engine. journal may be nil.
func New(router Router, cfg Config, journal *observability.Journal, logger *zap.Logger) (*Engine, error) {
	def := DefaultConfig()
	if cfg.Persona == "" {
		cfg.Persona = def.Persona
	}
	if cfg.SeenCapacity <= 0 {
		cfg.SeenCapacity = def.SeenCapacity
	}
	if cfg.FingerprintPrefix <= 0 {
		cfg.FingerprintPrefix = def.FingerprintPrefix
	}
	seen, err := lru.New[string, struct{}](cfg.SeenCapacity)
	if err != nil {
		return nil, fmt.Errorf("seen-set: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		router:  router,
		cfg:     cfg,
		seen:    seen,
		journal: journal,
		logger:  logger.Named("tags"),
	}, nil
}

// Fingerprint identifies a response for de-duplication: the message ID,
// the user, and a prefix of the text.
func (e *Engine) Fingerprint(r Response) string {
	prefix := []rune(r.Text)
	if len(prefix) > e.cfg.FingerprintPrefix {
		prefix = prefix[:e.cfg.FingerprintPrefix]
	}
	sum := sha256.Sum256([]byte(r.MessageID + "|" + r.UserID + "|" + string(prefix)))
	return hex.EncodeToString(sum[:])
}

// Process applies the tags in a response and returns the cleaned text.
// A response whose fingerprint was already seen is cleaned but applies
// nothing.
func (e *Engine) Process(ctx context.Context, r Response) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	found := Scan(r.Text)
	res := Result{Text: Strip(r.Text, found), Actions: []Action{}}

	if ok, _ := e.seen.ContainsOrAdd(e.Fingerprint(r), struct{}{}); ok {
		observability.ResponsesDuplicate.Inc()
		e.logger.Info("duplicate response skipped",
			zap.String("message_id", r.MessageID),
			zap.String("user", r.UserID),
		)
		res.Duplicate = true
		return res, nil
	}
	observability.ResponsesProcessed.Inc()
	if len(found) == 0 {
		return res, nil
	}

	scope, err := e.router.Resolve(r.UserID)
	if err != nil {
		// Forget the fingerprint so a redelivery can apply the tags.
		e.seen.Remove(e.Fingerprint(r))
		return res, fmt.Errorf("resolve stores for %s: %w", r.UserID, err)
	}
	e.logger.Debug("tags found", zap.Int("count", len(found)), zap.Bool("isolated", scope.Isolated))

	byKind := make(map[Kind][]Tag)
	for _, t := range found {
		if t.Malformed {
			res.Actions = append(res.Actions, e.record(r, scope, malformed(t, errUnrecognizedLayout)))
			continue
		}
		byKind[t.Kind] = append(byKind[t.Kind], t)
	}
	for _, kind := range Precedence {
		list := byKind[kind]
		if len(list) == 0 {
			continue
		}
		g := grammars[kind]
		if !g.Multiple {
			for range list[:len(list)-1] {
				res.Actions = append(res.Actions, e.record(r, scope, Action{
					Kind:    kind,
					Outcome: observability.OutcomeIgnored,
					Detail:  "superseded by a later tag",
				}))
			}
			list = list[len(list)-1:]
		}
		for _, t := range list {
			res.Actions = append(res.Actions, e.record(r, scope, e.apply(r, scope, t)))
		}
	}
	return res, nil
}

func (e *Engine) record(r Response, scope isolation.Scope, a Action) Action {
	a.Isolated = scope.Isolated
	e.journal.Record(observability.Event{
		Kind:     string(a.Kind),
		UserID:   r.UserID,
		Isolated: a.Isolated,
		Outcome:  a.Outcome,
		Detail:   a.Detail,
	})
	fields := []zap.Field{
		zap.String("kind", string(a.Kind)),
		zap.String("user", r.UserID),
		zap.Bool("isolated", a.Isolated),
		zap.String("detail", a.Detail),
	}
	switch a.Outcome {
	case observability.OutcomeApplied:
		e.logger.Info("tag applied", fields...)
	case observability.OutcomeRejected, observability.OutcomeMalformed:
		e.logger.Warn("tag not applied", append(fields, zap.String("outcome", string(a.Outcome)), zap.String("error", a.Error))...)
	default:
		e.logger.Debug("tag ignored", fields...)
	}
	return a
}

// ─── Dispatch ───────────────────────────────────────────────────────────────

var errUnrecognizedLayout = errors.New("keyword outside the tag head")

var amountPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)`)

// parseAmount reads the leading decimal number of a value ("12.5 coins").
func parseAmount(v string) (decimal.Decimal, error) {
	m := amountPattern.FindStringSubmatch(v)
	if m == nil {
		return decimal.Zero, fmt.Errorf("no amount in %q", v)
	}
	amt, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, err
	}
	if !amt.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return amt, nil
}

func (e *Engine) apply(r Response, scope isolation.Scope, t Tag) Action {
	switch t.Kind {
	case KindSpend:
		return e.spend(scope, t)
	case KindStore:
		if t.Value == "" {
			return malformed(t, errors.New("missing item name"))
		}
		desc := t.Field(FieldDesc, DefaultDescription)
		return outcome(t, t.Value, e.storeItem(scope, t.Value, desc))
	case KindUse:
		if t.Value == "" {
			return malformed(t, errors.New("missing item name"))
		}
		return outcome(t, t.Value, e.useItem(scope, t.Value))
	case KindUseGift:
		if t.Value == "" {
			return malformed(t, errors.New("missing item name"))
		}
		return outcome(t, t.Value, scope.Inventory.UseUserItem(r.UserID, t.Value))
	case KindGift:
		if t.Value == "" {
			return malformed(t, errors.New("missing item name"))
		}
		from := t.Field(FieldFrom, displayName(r))
		desc := t.Field(FieldDesc, DefaultDescription)
		return outcome(t, t.Value+" from "+from, scope.Inventory.AddUserGift(r.UserID, t.Value, desc, from))
	case KindRefund:
		amt, err := parseAmount(t.Value)
		if err != nil {
			return malformed(t, err)
		}
		reason := t.Field(FieldReason, DefaultRefundReason)
		err = scope.Ledger.AddIncome(amt, "refund: "+reason, e.cfg.Persona)
		return outcome(t, amt.String()+" "+reason, err)
	case KindApplyWithdraw:
		amt, err := parseAmount(t.Value)
		if err != nil {
			return malformed(t, err)
		}
		reason := t.Field(FieldReason, DefaultReason)
		id, err := scope.Ledger.ApplyWithdrawal(amt, reason, domain.Source{
			Channel:  r.Channel,
			UserID:   r.UserID,
			UserName: r.UserName,
		})
		return outcome(t, fmt.Sprintf("%s %s (request %s)", amt, reason, id), err)
	default:
		return Action{Kind: t.Kind, Outcome: observability.OutcomeIgnored}
	}
}

// spend debits the balance. A request above the balance charges whatever
// is left, noting the shortfall; an empty balance charges nothing.
func (e *Engine) spend(scope isolation.Scope, t Tag) Action {
	amt, err := parseAmount(t.Value)
	if err != nil {
		return malformed(t, err)
	}
	reason := t.Field(FieldReason, DefaultReason)

	var tx domain.Transaction
	if scope.Isolated {
		tx, err = scope.Ledger.SpendUpTo(amt, reason, e.cfg.Persona)
	} else {
		tx, err = e.router.SpendUpTo(amt, reason, e.cfg.Persona)
	}
	if err != nil {
		return outcome(t, fmt.Sprintf("%s %s", amt, reason), err)
	}
	return outcome(t, tx.Amount.String()+" "+tx.Reason, nil)
}

func (e *Engine) storeItem(scope isolation.Scope, name, desc string) error {
	if scope.Isolated {
		return scope.Inventory.AddSharedItem(name, desc)
	}
	return e.router.StoreSharedItem(name, desc)
}

func (e *Engine) useItem(scope isolation.Scope, name string) error {
	if scope.Isolated {
		return scope.Inventory.UseSharedItem(name)
	}
	return e.router.UseSharedItem(name)
}

func displayName(r Response) string {
	if r.UserName != "" {
		return r.UserName
	}
	return r.UserID
}

func outcome(t Tag, detail string, err error) Action {
	if err != nil {
		return Action{Kind: t.Kind, Outcome: observability.OutcomeRejected, Detail: detail, Error: err.Error()}
	}
	return Action{Kind: t.Kind, Outcome: observability.OutcomeApplied, Detail: detail}
}

func malformed(t Tag, err error) Action {
	return Action{Kind: t.Kind, Outcome: observability.OutcomeMalformed, Error: err.Error()}
}
