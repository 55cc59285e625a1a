package bot

import (
	"context"
	"errors"

	"github.com/suda/punchcard/internal/services"
	"github.com/suda/punchcard/internal/session"
)

func (d *Dispatcher) onName(ctx context.Context, req *request) error {
	last, first, ok := services.ParseFullName(req.ev.Text)
	if !ok {
		d.reply(req, txtBadFullName, nil)
		return nil
	}
	if err := d.setStep(ctx, req, session.AwaitingPhone, map[string]string{
		"first": first,
		"last":  last,
	}); err != nil {
		return err
	}
	d.reply(req, txtAskPhone, contactKeyboard())
	return nil
}

// onPhone accepts a typed number or a shared contact. A shared contact must
// be the sender's own.
func (d *Dispatcher) onPhone(ctx context.Context, req *request) error {
	raw := req.ev.Text
	if req.ev.Kind == KindContact {
		if req.ev.ContactUserID != req.ev.UserID {
			d.reply(req, txtForeignContact, contactKeyboard())
			return nil
		}
		raw = req.ev.ContactPhone
	}
	phone, ok := services.NormPhone(raw)
	if !ok {
		d.reply(req, txtBadPhone, contactKeyboard())
		return nil
	}

	first, last := req.state.Get("first"), req.state.Get("last")
	if first == "" || last == "" {
		// names were lost with the session; start over
		if err := d.setStep(ctx, req, session.AwaitingName, nil); err != nil {
			return err
		}
		d.reply(req, txtAskFullName, removeKeyboard())
		return nil
	}

	_, err := d.svc.Register(ctx, services.RegisterInput{
		TelegramID: req.ev.UserID,
		FirstName:  first,
		LastName:   last,
		Phone:      phone,
	})
	switch {
	case errors.Is(err, services.ErrPhoneTaken):
		d.reply(req, txtPhoneTaken, contactKeyboard())
		return nil
	case errors.Is(err, services.ErrCustomerExists):
		if err := d.clear(ctx, req); err != nil {
			return err
		}
		d.reply(req, txtAlreadyCustomer, customerMenu())
		return nil
	case err != nil:
		return err
	}

	if err := d.clear(ctx, req); err != nil {
		return err
	}
	d.reply(req, txtRegistered, customerMenu())
	return nil
}
