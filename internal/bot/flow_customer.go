package bot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/suda/punchcard/internal/services"
)

// requestCode issues (or reuses) today's code and forwards it to every
// barista so they can read it out at the counter.
func (d *Dispatcher) requestCode(ctx context.Context, req *request) error {
	c, err := d.svc.CustomerByTelegramID(ctx, req.ev.UserID)
	if err != nil {
		return err
	}
	issued, err := d.svc.IssueCode(ctx, c.ID)
	if err != nil {
		return err
	}
	if issued.Code.Used {
		d.reply(req, txtUsedToday, customerMenu())
		return nil
	}
	d.metrics.codesIssued.WithLabelValues("customer", boolLabel(issued.Created)).Inc()

	staff, err := d.svc.StaffMembers(ctx)
	if err != nil {
		return err
	}
	msg := txtStaffCodeRequest(c.LastName, services.PhoneSuffix(c.Phone), issued.Code.Code)
	for _, st := range staff {
		d.notify.Notify(st.TelegramID, msg, nil)
	}
	if len(staff) == 0 {
		d.log.Warn("code requested but no staff to notify", zap.Uint("customer_id", c.ID))
	}
	d.reply(req, txtCodeRequested, customerMenu())
	return nil
}

func (d *Dispatcher) myPoints(ctx context.Context, req *request) error {
	c, err := d.svc.CustomerByTelegramID(ctx, req.ev.UserID)
	if err != nil {
		return err
	}
	d.reply(req, txtBalance(c.Points, d.svc.Threshold(), d.svc.Remaining(c.Points)), customerMenu())
	return nil
}

// redeem handles a bare six-digit message. Only customers earn points this way.
func (d *Dispatcher) redeem(ctx context.Context, req *request) error {
	switch {
	case req.role.IsStaff():
		d.reply(req, txtStaffLoops, menuFor(req.role))
		return nil
	case req.role != services.RoleCustomer:
		d.reply(req, txtRegisterFirst, nil)
		return nil
	}

	res, err := d.svc.Redeem(ctx, req.ev.UserID, req.ev.Text)
	outcome := "ok"
	switch {
	case errors.Is(err, services.ErrCodeInvalid):
		outcome = "invalid"
		d.reply(req, txtCodeInvalid, customerMenu())
	case errors.Is(err, services.ErrCodeNotOwned):
		outcome = "not_owned"
		d.reply(req, txtCodeNotOwned, customerMenu())
	case errors.Is(err, services.ErrAlreadyRedeemedToday):
		outcome = "daily_limit"
		d.reply(req, txtCodeToday, customerMenu())
	case err != nil:
		d.metrics.redemptions.WithLabelValues("error").Inc()
		return err
	case res.Rewarded:
		outcome = "reward"
		d.reply(req, txtReward, customerMenu())
	default:
		d.reply(req, txtPointEarned(res.Remaining), customerMenu())
	}
	d.metrics.redemptions.WithLabelValues(outcome).Inc()
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
