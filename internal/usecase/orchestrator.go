package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"caregate/internal/domain"
	"caregate/internal/infra/tracer"
	"caregate/internal/usecase/detect"
)

// RoutingParams are the tunables of the routing engine. All thresholds
// compare strictly greater-than.
type RoutingParams struct {
	EmergencyConfidence float64 // confidence assigned on emergency override
	LowConfidenceFloor  float64 // below this the decision is flagged low-confidence
	MultiAgentThreshold float64 // two agents above this sets MultiAgentNeeded
	FallbackConfidence  float64 // confidence of the default-agent fallback
	MaxAlternatives     int     // alternative agent IDs recorded per decision
	MaxMessageChars     int     // inbound message size limit, in runes
}

// Orchestrator routes each inbound message to exactly one agent and runs
// the full turn: context assembly, evaluation, selection, generation, and
// the single persistence commit. Turns on the same session are serialized
// through the session locker; different sessions proceed concurrently.
type Orchestrator struct {
	agents []domain.Agent
	byID   map[string]domain.Agent
	ctxmgr *ContextManager
	locker *SessionLocker
	bus    domain.EventBus
	params RoutingParams
	logger *slog.Logger
}

// NewOrchestrator wires the routing engine. The agent slice order is the
// tie-break order for equal confidence. bus may be nil.
func NewOrchestrator(agents []domain.Agent, ctxmgr *ContextManager, locker *SessionLocker, bus domain.EventBus, params RoutingParams, logger *slog.Logger) *Orchestrator {
	byID := make(map[string]domain.Agent, len(agents))
	for _, a := range agents {
		byID[a.Descriptor().ID] = a
	}
	return &Orchestrator{
		agents: agents,
		byID:   byID,
		ctxmgr: ctxmgr,
		locker: locker,
		bus:    bus,
		params: params,
		logger: logger,
	}
}

// Agents exposes the roster descriptors for introspection endpoints.
func (o *Orchestrator) Agents() []domain.AgentDescriptor {
	descs := make([]domain.AgentDescriptor, 0, len(o.agents))
	for _, a := range o.agents {
		descs = append(descs, a.Descriptor())
	}
	return descs
}

// RouteAndRespond handles one inbound message end to end. manualAgentID,
// when non-empty, requests a specific agent; critical keywords still
// override manual selection.
func (o *Orchestrator) RouteAndRespond(ctx context.Context, userID, sessionID, text, manualAgentID string) (*domain.RouteResult, error) {
	const op = "Orchestrator.RouteAndRespond"

	ctx, span := tracer.StartSpan(ctx, "orchestrator.route")
	defer span.End()
	span.SetAttributes(
		tracer.StringAttr("session.key", SessionKey(userID, sessionID)),
	)

	if strings.TrimSpace(text) == "" {
		err := domain.NewDomainError(op, domain.ErrEmptyMessage, "")
		tracer.RecordError(span, err)
		return nil, err
	}
	if o.params.MaxMessageChars > 0 && len([]rune(text)) > o.params.MaxMessageChars {
		err := domain.NewDomainError(op, domain.ErrMessageTooLong, "")
		tracer.RecordError(span, err)
		return nil, err
	}
	if manualAgentID != "" {
		if _, ok := o.byID[manualAgentID]; !ok {
			err := domain.NewDomainError(op, domain.ErrAgentNotFound, manualAgentID)
			tracer.RecordError(span, err)
			return nil, err
		}
	}

	unlock, err := o.locker.Lock(ctx, SessionKey(userID, sessionID))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp(op, err)
	}
	defer unlock()

	turn, err := o.ctxmgr.CreateContext(ctx, userID, sessionID, text)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp(op, err)
	}

	decision := o.decide(text, turn.Context, manualAgentID)
	span.SetAttributes(
		tracer.StringAttr("routing.agent_id", decision.SelectedAgentID),
		tracer.StringAttr("routing.strategy", string(decision.Strategy)),
		tracer.Float64Attr("routing.confidence", decision.Confidence),
	)

	selected := o.byID[decision.SelectedAgentID]
	resp, err := selected.Respond(ctx, text, turn.Context)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp(op, err)
	}

	o.logger.Info("routed message",
		"session", SessionKey(userID, sessionID),
		"agent_id", decision.SelectedAgentID,
		"strategy", decision.Strategy,
		"confidence", decision.Confidence,
		"emergency_override", decision.EmergencyOverride,
		"used_fallback", resp.UsedFallback,
	)

	o.publishDecision(ctx, userID, sessionID, decision)
	if resp.UsedFallback {
		o.publish(ctx, domain.EventFallbackUsed, userID, sessionID, map[string]string{
			"agent_id": resp.AgentID,
		})
	}

	if err := o.ctxmgr.CommitExchange(ctx, turn, decision, resp); err != nil {
		// The response is already generated; return it and flag the
		// data-loss risk rather than failing the whole turn.
		o.logger.Error("turn persistence failed (data-loss risk)",
			"session", SessionKey(userID, sessionID), "error", err)
		tracer.RecordError(span, err)
	} else {
		tracer.SetOK(span)
	}

	return &domain.RouteResult{
		Content:          resp.Content,
		AgentID:          resp.AgentID,
		Confidence:       resp.Confidence,
		Urgency:          resp.Urgency,
		SuggestedActions: resp.SuggestedActions,
		RequiresFollowup: resp.RequiresFollowup,
		AlertRaised:      resp.Alert != nil,
		Orchestration:    *decision,
	}, nil
}

// decide runs evaluation and selection. It never returns an error: every
// message routes somewhere, with the default agent as the floor.
func (o *Orchestrator) decide(text string, cctx *domain.ConversationContext, manualAgentID string) *domain.OrchestrationDecision {
	results := o.evaluateAll(text, cctx)

	// Safety gate first: critical keywords force the emergency agent
	// regardless of scores or manual selection.
	if critical, terms := detect.Critical(text); critical {
		return o.emergencyDecision(results, terms)
	}

	// Caller-forced selection carries full confidence: the caller, not the
	// scorer, owns this decision.
	if manualAgentID != "" {
		return &domain.OrchestrationDecision{
			SelectedAgentID: manualAgentID,
			Strategy:        domain.StrategyManualSelection,
			Confidence:      1.0,
			Reasons:         []string{"agent explicitly requested by caller"},
		}
	}

	candidates := results[:0:0]
	for _, r := range results {
		if r.CanHandle {
			candidates = append(candidates, r)
		}
	}
	// Stable sort preserves roster order as the tie-break.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	if len(candidates) == 0 {
		return o.fallbackDecision()
	}

	top := candidates[0]
	decision := &domain.OrchestrationDecision{
		SelectedAgentID: top.AgentID,
		Strategy:        domain.StrategyConfidenceBased,
		Confidence:      clamp01(top.Confidence),
		Reasons:         append([]string(nil), top.Reasons...),
	}
	for _, alt := range candidates[1:] {
		if len(decision.AlternativeAgentIDs) >= o.params.MaxAlternatives {
			break
		}
		decision.AlternativeAgentIDs = append(decision.AlternativeAgentIDs, alt.AgentID)
	}
	if top.Confidence < o.params.LowConfidenceFloor {
		decision.Reasons = append(decision.Reasons, "confidence below floor")
	}
	if prev := cctx.LastAgentID(); prev != "" && prev != top.AgentID {
		decision.Reasons = append(decision.Reasons, "handoff from "+prev)
	}
	if len(candidates) > 1 &&
		candidates[0].Confidence > o.params.MultiAgentThreshold &&
		candidates[1].Confidence > o.params.MultiAgentThreshold {
		decision.MultiAgentNeeded = true
		decision.Strategy = domain.StrategyMultiAgent
	}
	return decision
}

// evaluateAll runs every agent's Evaluate concurrently. A panicking
// evaluator is isolated: it scores zero instead of failing the turn.
func (o *Orchestrator) evaluateAll(text string, cctx *domain.ConversationContext) []domain.EvaluationResult {
	results := make([]domain.EvaluationResult, len(o.agents))
	var wg sync.WaitGroup
	for i, a := range o.agents {
		wg.Add(1)
		go func(i int, a domain.Agent) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("agent evaluation panicked",
						"agent_id", a.Descriptor().ID, "panic", r)
					results[i] = domain.EvaluationResult{
						AgentID: a.Descriptor().ID,
						Reasons: []string{"evaluate error"},
					}
				}
			}()
			results[i] = a.Evaluate(text, cctx)
			results[i].Confidence = clamp01(results[i].Confidence)
		}(i, a)
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) emergencyDecision(results []domain.EvaluationResult, terms []string) *domain.OrchestrationDecision {
	emergencyID := o.emergencyAgentID()
	confidence := o.params.EmergencyConfidence
	for _, r := range sortedByConfidence(results) {
		if !r.CanHandle {
			continue
		}
		// Already the top scorer: keep the higher of the two values.
		if r.AgentID == emergencyID && r.Confidence > confidence {
			confidence = r.Confidence
		}
		break
	}
	return &domain.OrchestrationDecision{
		SelectedAgentID:   emergencyID,
		Strategy:          domain.StrategyEmergencyOverride,
		Confidence:        clamp01(confidence),
		Reasons:           []string{"critical keywords detected: " + joinReasons(terms)},
		EmergencyOverride: true,
	}
}

// fallbackDecision routes to the general wellness agent when nothing
// claims the message.
func (o *Orchestrator) fallbackDecision() *domain.OrchestrationDecision {
	return &domain.OrchestrationDecision{
		SelectedAgentID: o.defaultAgentID(),
		Strategy:        domain.StrategyConfidenceBased,
		Confidence:      clamp01(o.params.FallbackConfidence),
		Reasons:         []string{"no agent matched; default fallback"},
	}
}

func (o *Orchestrator) emergencyAgentID() string {
	for _, a := range o.agents {
		if a.Descriptor().HasCapability(domain.CapEmergency) {
			return a.Descriptor().ID
		}
	}
	return o.defaultAgentID()
}

func (o *Orchestrator) defaultAgentID() string {
	for _, a := range o.agents {
		if a.Descriptor().HasCapability(domain.CapWellness) {
			return a.Descriptor().ID
		}
	}
	return o.agents[len(o.agents)-1].Descriptor().ID
}

func (o *Orchestrator) publishDecision(ctx context.Context, userID, sessionID string, decision *domain.OrchestrationDecision) {
	o.publish(ctx, domain.EventAgentRouted, userID, sessionID, decision)
}

func (o *Orchestrator) publish(ctx context.Context, eventType domain.EventType, userID, sessionID string, payload any) {
	if o.bus == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			raw = data
		}
	}
	o.bus.Publish(ctx, domain.Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		SessionID: sessionID,
		Payload:   raw,
	})
}

func sortedByConfidence(results []domain.EvaluationResult) []domain.EvaluationResult {
	sorted := append([]domain.EvaluationResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	return sorted
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
