package bot

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/suda/punchcard/internal/services"
	"github.com/suda/punchcard/internal/session"
)

type capability int

const (
	capAnyone capability = iota
	capCustomer
	capStaff
	capAdmin
)

func (c capability) allows(role services.Role) bool {
	switch c {
	case capCustomer:
		return role == services.RoleCustomer
	case capStaff:
		return role.IsStaff()
	case capAdmin:
		return role == services.RoleAdmin
	default:
		return true
	}
}

// request is one event plus what the dispatcher resolved about its sender.
type request struct {
	ev    Event
	role  services.Role
	state session.State
}

type handlerFunc func(ctx context.Context, req *request) error

type route struct {
	need capability
	fn   handlerFunc
}

// Dispatcher routes inbound events to role-gated handlers. It is driven by a
// single goroutine (see Run), so events are handled one at a time.
type Dispatcher struct {
	svc      *services.Service
	sessions session.Store
	out      Sender
	notify   *Notifier
	metrics  *Metrics
	log      *zap.Logger
	shop     string

	commands map[string]route       // "/start", button labels
	steps    map[session.Step]route // pending conversation steps
}

type Options struct {
	ShopName string
	Metrics  *Metrics
}

func NewDispatcher(svc *services.Service, sessions session.Store, out Sender, opts Options, log *zap.Logger) *Dispatcher {
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	d := &Dispatcher{
		svc:      svc,
		sessions: sessions,
		out:      out,
		notify:   NewNotifier(out, log),
		metrics:  opts.Metrics,
		log:      log.Named("dispatcher"),
		shop:     opts.ShopName,
	}

	d.commands = map[string]route{
		"/start":       {capAnyone, d.start},
		"/cancel":      {capAnyone, d.cancel},
		"/help":        {capAnyone, d.help},
		"/new_barista": {capAdmin, d.beginStep(session.AwaitingStaffID, txtAskStaffID)},

		BtnRules:       {capAnyone, d.rules},
		BtnGetCode:     {capCustomer, d.requestCode},
		BtnMyPoints:    {capCustomer, d.myPoints},
		BtnIssueCode:   {capStaff, d.beginStep(session.AwaitingIssueMatch, txtAskLookup)},
		BtnCheckPoints: {capStaff, d.beginStep(session.AwaitingBalanceMatch, txtAskLookup)},
		BtnAddPoints:   {capAdmin, d.beginStep(session.AwaitingAddMatch, txtAskLookup)},
		BtnDeduct:      {capAdmin, d.beginStep(session.AwaitingDeductMatch, txtAskLookup)},
		BtnAddStaff:    {capAdmin, d.beginStep(session.AwaitingStaffID, txtAskStaffID)},
	}

	d.steps = map[session.Step]route{
		session.AwaitingName:         {capAnyone, d.onName},
		session.AwaitingPhone:        {capAnyone, d.onPhone},
		session.AwaitingIssueMatch:   {capStaff, d.onLookup},
		session.AwaitingBalanceMatch: {capStaff, d.onLookup},
		session.AwaitingAddMatch:     {capAdmin, d.onLookup},
		session.AwaitingDeductMatch:  {capAdmin, d.onLookup},
		session.AwaitingAmount:       {capAdmin, d.onAmount},
		session.AwaitingStaffID:      {capAdmin, d.onStaffID},
	}
	return d
}

// Run consumes events until ctx is done or the channel is closed.
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.Handle(ctx, ev)
		}
	}
}

// Handle processes a single event. Failures are logged and answered with a
// generic apology; they never stop the loop.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panic",
				zap.String("user", ev.UserID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	if err := d.handle(ctx, ev); err != nil {
		d.log.Error("handle event",
			zap.String("user", ev.UserID),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err))
		d.reply(&request{ev: ev}, txtInternal, nil)
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) error {
	role, err := d.svc.ResolveRole(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("resolve role: %w", err)
	}
	st, err := d.sessions.Get(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	d.metrics.updates.WithLabelValues(string(ev.Kind), role.String()).Inc()
	req := &request{ev: ev, role: role, state: st}

	switch ev.Kind {
	case KindCallback:
		return d.onCallback(ctx, req)
	case KindContact:
		if st.Step == session.AwaitingPhone {
			return d.onPhone(ctx, req)
		}
		d.reply(req, txtUnknown, nil)
		return nil
	case KindCommand:
		if r, ok := d.commands["/"+ev.Command]; ok {
			return d.dispatch(ctx, req, r)
		}
		d.reply(req, txtUnknown, nil)
		return nil
	}

	if r, ok := d.commands[ev.Text]; ok {
		return d.dispatch(ctx, req, r)
	}
	if r, ok := d.steps[st.Step]; ok {
		if !r.need.allows(role) {
			if err := d.sessions.Clear(ctx, ev.UserID); err != nil {
				return err
			}
			d.deny(req)
			return nil
		}
		return r.fn(ctx, req)
	}
	if services.IsRedemptionCode(ev.Text) {
		return d.redeem(ctx, req)
	}
	d.reply(req, txtUnknown, nil)
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, req *request, r route) error {
	if !r.need.allows(req.role) {
		d.deny(req)
		return nil
	}
	return r.fn(ctx, req)
}

func (d *Dispatcher) deny(req *request) {
	if req.role == services.RoleUnregistered {
		d.reply(req, txtRegisterFirst, nil)
		return
	}
	d.reply(req, txtNoAccess, nil)
}

// reply answers the sender. Transport errors are logged only.
func (d *Dispatcher) reply(req *request, text string, markup any) {
	if err := d.out.SendMessage(req.ev.ChatID, text, markup); err != nil {
		d.log.Warn("reply failed", zap.Int64("chat", req.ev.ChatID), zap.Error(err))
	}
}

func (d *Dispatcher) setStep(ctx context.Context, req *request, step session.Step, data map[string]string) error {
	req.state = session.State{Step: step, Data: data}
	return d.sessions.Set(ctx, req.ev.UserID, req.state)
}

func (d *Dispatcher) clear(ctx context.Context, req *request) error {
	req.state = session.State{}
	return d.sessions.Clear(ctx, req.ev.UserID)
}

// beginStep parks the sender in step and shows the prompt for it.
func (d *Dispatcher) beginStep(step session.Step, prompt string) handlerFunc {
	return func(ctx context.Context, req *request) error {
		if err := d.setStep(ctx, req, step, nil); err != nil {
			return err
		}
		d.reply(req, prompt, removeKeyboard())
		return nil
	}
}

func (d *Dispatcher) start(ctx context.Context, req *request) error {
	switch req.role {
	case services.RoleUnregistered:
		if err := d.setStep(ctx, req, session.AwaitingName, nil); err != nil {
			return err
		}
		d.reply(req, txtWelcome(d.shop, d.svc.Threshold()), removeKeyboard())
		return nil
	case services.RoleAdmin:
		d.reply(req, txtHelloAdmin, adminMenu())
	case services.RoleStaff:
		d.reply(req, txtHelloStaff, staffMenu())
	default:
		d.reply(req, txtWelcomeBack(d.shop), customerMenu())
	}
	return d.clear(ctx, req)
}

func (d *Dispatcher) cancel(ctx context.Context, req *request) error {
	if err := d.clear(ctx, req); err != nil {
		return err
	}
	d.reply(req, txtCanceled, menuFor(req.role))
	return nil
}

func (d *Dispatcher) help(_ context.Context, req *request) error {
	d.reply(req, txtHelp(req.role), menuFor(req.role))
	return nil
}

func (d *Dispatcher) rules(_ context.Context, req *request) error {
	d.reply(req, txtRules(d.svc.Threshold()), menuFor(req.role))
	return nil
}
