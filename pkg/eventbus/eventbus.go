// Package eventbus is a named event bus with pattern-matched rules, modeled
// on the put-events/rule/target shape of a managed event router. Rules match
// on exact (source, detail-type) pairs and deliver to either a directly
// invoked consumer or a durable queue.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is one routed message. ID and Time are bus-assigned at publish time;
// consumers must never trust payload-supplied equivalents.
type Event struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	DetailType string          `json:"detail-type"`
	Time       time.Time       `json:"time"`
	Detail     json.RawMessage `json:"detail"`
}

// Entry is a publish request before the bus stamps it.
type Entry struct {
	Source     string
	DetailType string
	Detail     any
}

// Pattern matches events by exact source and detail-type. No wildcards.
type Pattern struct {
	Source     string
	DetailType string
}

// Matches reports whether the event satisfies the pattern.
func (p Pattern) Matches(e Event) bool {
	return e.Source == p.Source && e.DetailType == p.DetailType
}

// Consumer is a direct-invocation target. A returned error signals delivery
// failure and triggers redelivery.
type Consumer interface {
	HandleEvent(ctx context.Context, evt Event) error
}

// Enqueuer is a durable-queue target. The router's responsibility ends at a
// successful enqueue.
type Enqueuer interface {
	Enqueue(ctx context.Context, body []byte) error
}

const defaultMaxAttempts = 3

// Rule binds a pattern to exactly one target family.
type Rule struct {
	name        string
	pattern     Pattern
	consumer    Consumer
	queue       Enqueuer
	maxAttempts int
	deadLetter  Enqueuer
}

// RuleOption configures a Rule.
type RuleOption func(*Rule)

// WithConsumer sets a direct-invocation target.
func WithConsumer(c Consumer) RuleOption {
	return func(r *Rule) { r.consumer = c }
}

// WithQueue sets a durable-queue target.
func WithQueue(q Enqueuer) RuleOption {
	return func(r *Rule) { r.queue = q }
}

// WithMaxAttempts bounds redelivery to a direct-invocation target.
func WithMaxAttempts(n int) RuleOption {
	return func(r *Rule) { r.maxAttempts = n }
}

// WithDeadLetter routes events that exhaust redelivery to a side queue.
func WithDeadLetter(q Enqueuer) RuleOption {
	return func(r *Rule) { r.deadLetter = q }
}

// NewRule validates the target configuration at construction time: a rule
// must carry exactly one target family.
func NewRule(name string, pattern Pattern, opts ...RuleOption) (*Rule, error) {
	if name == "" {
		return nil, fmt.Errorf("rule requires a name")
	}
	if pattern.Source == "" || pattern.DetailType == "" {
		return nil, fmt.Errorf("rule %q requires a source and detail-type pattern", name)
	}
	r := &Rule{name: name, pattern: pattern, maxAttempts: defaultMaxAttempts}
	for _, opt := range opts {
		opt(r)
	}
	if r.consumer != nil && r.queue != nil {
		return nil, fmt.Errorf("rule %q configures both a consumer and a queue target", name)
	}
	if r.consumer == nil && r.queue == nil {
		return nil, fmt.Errorf("rule %q configures no target", name)
	}
	if r.maxAttempts < 1 {
		return nil, fmt.Errorf("rule %q requires at least one delivery attempt", name)
	}
	return r, nil
}

// Name returns the rule name.
func (r *Rule) Name() string { return r.name }

// Bus routes published events to the targets of every matching rule. It
// holds no entity state of its own.
type Bus struct {
	name  string
	rules []*Rule
	log   *zap.Logger
}

// NewBus builds a named bus over a static rule table.
func NewBus(name string, log *zap.Logger, rules ...*Rule) (*Bus, error) {
	if name == "" {
		return nil, fmt.Errorf("bus requires a name")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{name: name, rules: rules, log: log}, nil
}

// Name returns the bus name.
func (b *Bus) Name() string { return b.name }

// PutEvents stamps and routes the entries, returning one bus-assigned event
// id per entry as the publish acknowledgment. An entry that matches no rule
// is still acknowledged; it simply reaches zero targets. A delivery failure
// fails the whole call so the publisher does not treat the event as handed
// off.
func (b *Bus) PutEvents(ctx context.Context, entries ...Entry) ([]string, error) {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		detail, err := json.Marshal(entry.Detail)
		if err != nil {
			return nil, fmt.Errorf("marshal detail for %s/%s: %w", entry.Source, entry.DetailType, err)
		}
		evt := Event{
			ID:         uuid.NewString(),
			Source:     entry.Source,
			DetailType: entry.DetailType,
			Time:       time.Now().UTC(),
			Detail:     detail,
		}
		if err := b.route(ctx, evt); err != nil {
			return nil, err
		}
		ids = append(ids, evt.ID)
	}
	return ids, nil
}

func (b *Bus) route(ctx context.Context, evt Event) error {
	matched := 0
	for _, rule := range b.rules {
		if !rule.pattern.Matches(evt) {
			continue
		}
		matched++
		if err := b.deliver(ctx, rule, evt); err != nil {
			return err
		}
	}
	b.log.Debug("event routed",
		zap.String("bus", b.name),
		zap.String("event_id", evt.ID),
		zap.String("source", evt.Source),
		zap.String("detail_type", evt.DetailType),
		zap.Int("matched_rules", matched),
	)
	return nil
}

func (b *Bus) deliver(ctx context.Context, rule *Rule, evt Event) error {
	if rule.queue != nil {
		body, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", evt.ID, err)
		}
		if err := rule.queue.Enqueue(ctx, body); err != nil {
			return fmt.Errorf("rule %s: enqueue event %s: %w", rule.name, evt.ID, err)
		}
		return nil
	}

	// Direct invocation: at-least-once with bounded redelivery.
	var lastErr error
	for attempt := 1; attempt <= rule.maxAttempts; attempt++ {
		lastErr = rule.consumer.HandleEvent(ctx, evt)
		if lastErr == nil {
			return nil
		}
		b.log.Warn("event delivery failed",
			zap.String("bus", b.name),
			zap.String("rule", rule.name),
			zap.String("event_id", evt.ID),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
	}

	if rule.deadLetter != nil {
		body, err := json.Marshal(evt)
		if err == nil {
			err = rule.deadLetter.Enqueue(ctx, body)
		}
		if err != nil {
			return fmt.Errorf("rule %s: dead-letter event %s: %w", rule.name, evt.ID, err)
		}
		b.log.Warn("event dead-lettered",
			zap.String("rule", rule.name),
			zap.String("event_id", evt.ID),
		)
		return nil
	}
	return fmt.Errorf("rule %s: delivery of event %s exhausted %d attempts: %w",
		rule.name, evt.ID, rule.maxAttempts, lastErr)
}
