package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/suda/punchcard/internal/models"
	"github.com/suda/punchcard/internal/services"
	"github.com/suda/punchcard/internal/session"
)

const pickPrefix = "pick:"

func pickPayload(step session.Step, customerID uint) string {
	return fmt.Sprintf("%s%s:%d", pickPrefix, step, customerID)
}

func parsePick(data string) (session.Step, uint, bool) {
	rest, ok := strings.CutPrefix(data, pickPrefix)
	if !ok {
		return "", 0, false
	}
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 {
		return "", 0, false
	}
	id, err := strconv.ParseUint(rest[i+1:], 10, 64)
	if err != nil || id == 0 {
		return "", 0, false
	}
	return session.Step(rest[:i]), uint(id), true
}

// onLookup resolves "<Фамилия> <last 4>" for any of the lookup steps.
func (d *Dispatcher) onLookup(ctx context.Context, req *request) error {
	last, suffix, ok := services.ParseLookup(req.ev.Text)
	if !ok {
		d.reply(req, txtBadLookup, nil)
		return nil
	}
	found, err := d.svc.LookupCustomers(ctx, last, suffix)
	if errors.Is(err, services.ErrNotFound) {
		if err := d.clear(ctx, req); err != nil {
			return err
		}
		d.reply(req, txtNotFound, menuFor(req.role))
		return nil
	}
	if err != nil {
		return err
	}
	if len(found) > 1 {
		d.reply(req, txtPickCustomer, pickKeyboard(req.state.Step, found))
		return nil
	}
	return d.completeMatch(ctx, req, &found[0])
}

func (d *Dispatcher) onCallback(ctx context.Context, req *request) error {
	if err := d.out.AnswerCallback(req.ev.CallbackID, ""); err != nil {
		d.log.Warn("answer callback", zap.Error(err))
	}
	step, customerID, ok := parsePick(req.ev.CallbackData)
	if !ok || step != req.state.Step {
		d.reply(req, txtPickExpired, menuFor(req.role))
		return nil
	}
	r, ok := d.steps[step]
	if !ok || !r.need.allows(req.role) {
		if err := d.clear(ctx, req); err != nil {
			return err
		}
		d.deny(req)
		return nil
	}
	c, err := d.svc.CustomerByID(ctx, customerID)
	if errors.Is(err, services.ErrNotFound) {
		if err := d.clear(ctx, req); err != nil {
			return err
		}
		d.reply(req, txtNotFound, menuFor(req.role))
		return nil
	}
	if err != nil {
		return err
	}
	return d.completeMatch(ctx, req, c)
}

// completeMatch finishes whichever lookup step the sender is in once a single
// customer has been identified.
func (d *Dispatcher) completeMatch(ctx context.Context, req *request, c *models.Customer) error {
	switch req.state.Step {
	case session.AwaitingIssueMatch:
		if err := d.clear(ctx, req); err != nil {
			return err
		}
		return d.issueFor(ctx, req, c)

	case session.AwaitingBalanceMatch:
		if err := d.clear(ctx, req); err != nil {
			return err
		}
		d.reply(req, txtCustomerBalance(c.FirstName, c.LastName, c.Points, d.svc.Threshold(), d.svc.Remaining(c.Points)),
			menuFor(req.role))
		return nil

	case session.AwaitingAddMatch, session.AwaitingDeductMatch:
		op := "add"
		if req.state.Step == session.AwaitingDeductMatch {
			op = "deduct"
		}
		if err := d.setStep(ctx, req, session.AwaitingAmount, map[string]string{
			"customer": strconv.FormatUint(uint64(c.ID), 10),
			"op":       op,
		}); err != nil {
			return err
		}
		d.reply(req, fmt.Sprintf("%s %s. %s", esc(c.LastName), esc(c.FirstName), txtAskAmount), nil)
		return nil
	}
	return fmt.Errorf("no match handler for step %q", req.state.Step)
}

func (d *Dispatcher) issueFor(ctx context.Context, req *request, c *models.Customer) error {
	issued, err := d.svc.IssueCode(ctx, c.ID)
	if err != nil {
		return err
	}
	if issued.Code.Used {
		d.reply(req, txtCodeAlreadyUsed(c.FirstName, c.LastName), menuFor(req.role))
		return nil
	}
	d.metrics.codesIssued.WithLabelValues("staff", boolLabel(issued.Created)).Inc()

	text := txtIssuedCode(c.FirstName, c.LastName, issued.Code.Code)
	d.reply(req, text, menuFor(req.role))

	png, err := qrcode.Encode(issued.Code.Code, qrcode.Medium, 256)
	if err != nil {
		d.log.Warn("render qr", zap.Error(err))
		return nil
	}
	if err := d.out.SendPhoto(req.ev.ChatID, issued.Code.Code+".png", png, ""); err != nil {
		d.log.Warn("send qr", zap.Int64("chat", req.ev.ChatID), zap.Error(err))
	}
	return nil
}

// onAmount applies an admin point adjustment. Admin rights are re-checked by
// the service when the change is written.
func (d *Dispatcher) onAmount(ctx context.Context, req *request) error {
	n, ok := services.ParseAmount(req.ev.Text)
	if !ok {
		d.reply(req, txtBadAmount, nil)
		return nil
	}
	id, err := strconv.ParseUint(req.state.Get("customer"), 10, 64)
	if err != nil {
		if err := d.clear(ctx, req); err != nil {
			return err
		}
		d.reply(req, txtNotFound, menuFor(req.role))
		return nil
	}
	delta := n
	if req.state.Get("op") == "deduct" {
		delta = -n
	}
	if err := d.clear(ctx, req); err != nil {
		return err
	}

	adj, err := d.svc.AdjustPoints(ctx, req.ev.UserID, uint(id), delta)
	switch {
	case errors.Is(err, services.ErrForbidden):
		d.deny(req)
		return nil
	case errors.Is(err, services.ErrNotFound):
		d.reply(req, txtNotFound, menuFor(req.role))
		return nil
	case err != nil:
		return err
	}

	c := adj.Customer
	d.reply(req, txtAdjusted(c.FirstName, c.LastName, adj.Before, c.Points), menuFor(req.role))
	if delta > 0 {
		d.notify.Notify(c.TelegramID, txtPointsAdded(n, c.Points, d.svc.Threshold()), nil)
		for i := 0; i < adj.Rewards; i++ {
			d.notify.Notify(c.TelegramID, txtReward, nil)
		}
	} else {
		d.notify.Notify(c.TelegramID, txtPointsDeducted(n, c.Points, d.svc.Threshold()), nil)
	}
	return nil
}

func (d *Dispatcher) onStaffID(ctx context.Context, req *request) error {
	id, ok := services.ParseTelegramID(req.ev.Text)
	if !ok {
		d.reply(req, txtBadStaffID, nil)
		return nil
	}
	if err := d.clear(ctx, req); err != nil {
		return err
	}

	_, err := d.svc.AddStaff(ctx, req.ev.UserID, id)
	switch {
	case errors.Is(err, services.ErrForbidden):
		d.deny(req)
		return nil
	case errors.Is(err, services.ErrStaffExists):
		d.reply(req, txtStaffExists(id), menuFor(req.role))
		return nil
	case err != nil:
		return err
	}
	d.reply(req, txtStaffAdded(id), menuFor(req.role))
	d.notify.Notify(id, txtNewStaff, nil)
	return nil
}
