// Package approval gates side-effecting directives behind user consent.
//
// A request is granted without asking when the approval policy auto-approves
// its action or, for terminal commands, when the command matches the
// whitelist. Otherwise the Prompter is asked and the manager waits for the
// answer, the policy timeout, or context cancellation, whichever comes first.
package approval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/webpilot/pkg/command"
	"github.com/entrhq/webpilot/pkg/config"
)

// Prompter asks the user a yes/no question. detail carries the preview (a
// diff or the command text) and may be empty. Implementations should return
// promptly once ctx is done.
type Prompter interface {
	Confirm(ctx context.Context, question, detail string) (bool, error)
}

// PolicySource returns the approval policy in effect. It is consulted on
// every request so configuration reloads apply immediately.
type PolicySource func() config.ApprovalConfig

// Logger is the subset of *logging.Logger the manager uses.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
}

// Request describes one side effect awaiting consent.
type Request struct {
	// Action is the directive action, e.g. writeFile
	Action string
	// Target is the file path or the terminal command line
	Target string
	// Question is shown to the user
	Question string
	// Detail is the preview shown under the question
	Detail string
}

// Response answers a pending request.
type Response struct {
	ApprovalID string
	Granted    bool
}

// Manager handles consent requests and responses
type Manager struct {
	policy   PolicySource
	prompter Prompter
	logger   Logger

	pendingApprovals map[string]*pendingApproval
	mu               sync.Mutex
}

// pendingApproval tracks a request waiting for an answer
type pendingApproval struct {
	approvalID string
	action     string
	response   chan Response
	closeOnce  sync.Once
}

// NewManager creates a consent manager. policy may be nil, in which case the
// default approval configuration applies.
func NewManager(policy PolicySource, prompter Prompter, logger Logger) *Manager {
	if policy == nil {
		def := config.DefaultConfig().Approval
		policy = func() config.ApprovalConfig { return def }
	}
	return &Manager{
		policy:           policy,
		prompter:         prompter,
		logger:           logger,
		pendingApprovals: make(map[string]*pendingApproval),
	}
}

// RequestApproval asks for consent and waits for the answer.
// Returns (approved, timedOut) where:
//   - approved: true if the request was granted or auto-approved
//   - timedOut: true if nobody answered within the policy timeout
func (m *Manager) RequestApproval(ctx context.Context, req Request) (bool, bool) {
	approvalID := uuid.New().String()
	policy := m.policy()

	if m.checkAutoApproval(approvalID, policy, req) {
		return true, false
	}
	if m.prompter == nil {
		m.logger.Warnf("Consent %s for %s denied: no prompter available", approvalID, req.Action)
		return false, false
	}

	responseChannel := make(chan Response, 1)
	m.setupPendingApproval(approvalID, req.Action, responseChannel)
	defer m.cleanupPendingApproval(approvalID, responseChannel)

	askCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.logger.Infof("Consent %s requested for %s %q", approvalID, req.Action, req.Target)
	go func() {
		granted, err := m.prompter.Confirm(askCtx, req.Question, req.Detail)
		if err != nil {
			if askCtx.Err() == nil {
				m.logger.Warnf("Consent prompt %s failed: %v", approvalID, err)
			}
			granted = false
		}
		m.HandleResponse(Response{ApprovalID: approvalID, Granted: granted})
	}()

	return m.waitForResponse(ctx, approvalID, req.Action, policy.Timeout, responseChannel)
}

// HandleResponse delivers an answer to a pending request. Answers for
// unknown or finished requests are ignored.
func (m *Manager) HandleResponse(response Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pa, ok := m.pendingApprovals[response.ApprovalID]
	if !ok {
		return
	}

	// Non-blocking: the waiter may already be gone
	select {
	case pa.response <- response:
	default:
	}
}

// Pending returns the number of requests waiting for an answer.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pendingApprovals)
}

// checkAutoApproval reports whether the policy grants req without asking.
func (m *Manager) checkAutoApproval(approvalID string, policy config.ApprovalConfig, req Request) bool {
	if req.Action == command.ActionExecuteTerminal {
		if policy.IsCommandWhitelisted(req.Target) {
			m.logger.Infof("Consent %s auto-approved: command %q is whitelisted", approvalID, req.Target)
			return true
		}
		return false
	}
	if policy.IsActionAutoApproved(req.Action) {
		m.logger.Infof("Consent %s auto-approved for %s", approvalID, req.Action)
		return true
	}
	return false
}

func (m *Manager) setupPendingApproval(approvalID, action string, responseChannel chan Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pendingApprovals[approvalID] = &pendingApproval{
		approvalID: approvalID,
		action:     action,
		response:   responseChannel,
	}
}

// cleanupPendingApproval is safe to call multiple times
func (m *Manager) cleanupPendingApproval(approvalID string, responseChannel chan Response) {
	m.mu.Lock()
	pa, ok := m.pendingApprovals[approvalID]
	if ok {
		delete(m.pendingApprovals, approvalID)
	}
	m.mu.Unlock()

	if ok && pa != nil {
		pa.closeOnce.Do(func() {
			close(responseChannel)
		})
	}
}

// waitForResponse waits for the answer. A zero timeout waits until ctx is done.
func (m *Manager) waitForResponse(ctx context.Context, approvalID, action string, timeout time.Duration, responseChannel chan Response) (bool, bool) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ctx.Done():
		m.logger.Warnf("Consent %s for %s cancelled", approvalID, action)
		return false, false

	case <-expired:
		m.logger.Warnf("Consent %s for %s timed out after %s", approvalID, action, timeout)
		return false, true

	case response, ok := <-responseChannel:
		if ok && response.Granted {
			m.logger.Infof("Consent %s granted for %s", approvalID, action)
			return true, false
		}
		m.logger.Infof("Consent %s denied for %s", approvalID, action)
		return false, false
	}
}
