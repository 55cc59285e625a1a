package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suda/punchcard/internal/models"
)

func TestRegister(t *testing.T) {
	svc, _, _ := newTestService(t, 7)
	ctx := context.Background()

	c, err := svc.Register(ctx, RegisterInput{TelegramID: "100", FirstName: "Иван", LastName: "Иванов", Phone: "79991234567"})
	require.NoError(t, err)
	assert.Zero(t, c.Points)
	assert.Nil(t, c.LastCheckIn)

	_, err = svc.Register(ctx, RegisterInput{TelegramID: "100", FirstName: "Иван", LastName: "Иванов", Phone: "79990000000"})
	assert.ErrorIs(t, err, ErrCustomerExists)

	_, err = svc.Register(ctx, RegisterInput{TelegramID: "101", FirstName: "Пётр", LastName: "Петров", Phone: "79991234567"})
	assert.ErrorIs(t, err, ErrPhoneTaken)
}

func TestIssueCode_ReusesTodaysCode(t *testing.T) {
	svc, gdb, _ := newTestService(t, 7)
	ctx := context.Background()
	c := seedCustomer(t, gdb, "100", "Иванов", "79991234567", 0)

	first, err := svc.IssueCode(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "2026-10-16", first.Code.IssuedOn)

	second, err := svc.IssueCode(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Code.Code, second.Code.Code)

	var n int64
	gdb.Model(&models.DailyCode{}).Where("customer_id = ?", c.ID).Count(&n)
	assert.EqualValues(t, 1, n)
}

func TestIssueCode_DropsStaleCodes(t *testing.T) {
	svc, gdb, clk := newTestService(t, 7)
	ctx := context.Background()
	c := seedCustomer(t, gdb, "100", "Иванов", "79991234567", 0)

	old, err := svc.IssueCode(ctx, c.ID)
	require.NoError(t, err)

	clk.Advance(24 * time.Hour)
	fresh, err := svc.IssueCode(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, fresh.Created)
	assert.Equal(t, "2026-10-17", fresh.Code.IssuedOn)

	var codes []models.DailyCode
	gdb.Where("customer_id = ?", c.ID).Find(&codes)
	require.Len(t, codes, 1)
	assert.NotEqual(t, old.Code.ID, codes[0].ID)
}

func TestIssueCode_UnknownCustomer(t *testing.T) {
	svc, _, _ := newTestService(t, 7)
	_, err := svc.IssueCode(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupCustomers(t *testing.T) {
	svc, gdb, _ := newTestService(t, 7)
	ctx := context.Background()
	seedCustomer(t, gdb, "100", "Иванов", "79991234567", 0)
	seedCustomer(t, gdb, "101", "Иванов", "79001114567", 0)
	seedCustomer(t, gdb, "102", "Петров", "79991234567"[:7]+"0000", 0)

	got, err := svc.LookupCustomers(ctx, "Иванов", "4567")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = svc.LookupCustomers(ctx, "Сидоров", "4567")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeem_ReachesThresholdAndResets(t *testing.T) {
	svc, gdb, _ := newTestService(t, 6)
	ctx := context.Background()
	c := seedCustomer(t, gdb, "100", "Иванов", "79991234567", 5)

	issued, err := svc.IssueCode(ctx, c.ID)
	require.NoError(t, err)

	r, err := svc.Redeem(ctx, "100", issued.Code.Code)
	require.NoError(t, err)
	assert.True(t, r.Rewarded)
	assert.Zero(t, r.Customer.Points)
	assert.Equal(t, 1, r.Customer.Rewards)

	var stored models.Customer
	gdb.First(&stored, c.ID)
	assert.Zero(t, stored.Points)
	require.NotNil(t, stored.LastCheckIn)

	var dc models.DailyCode
	gdb.First(&dc, issued.Code.ID)
	assert.True(t, dc.Used)
}

func TestRedeem_IncrementsBelowThreshold(t *testing.T) {
	svc, gdb, _ := newTestService(t, 7)
	ctx := context.Background()
	c := seedCustomer(t, gdb, "100", "Иванов", "79991234567", 2)
	issued, err := svc.IssueCode(ctx, c.ID)
	require.NoError(t, err)

	r, err := svc.Redeem(ctx, "100", issued.Code.Code)
	require.NoError(t, err)
	assert.False(t, r.Rewarded)
	assert.Equal(t, 3, r.Customer.Points)
	assert.Equal(t, 4, r.Remaining)
}

func TestRedeem_Rejections(t *testing.T) {
	svc, gdb, clk := newTestService(t, 7)
	ctx := context.Background()
	ivan := seedCustomer(t, gdb, "100", "Иванов", "79991234567", 0)
	petr := seedCustomer(t, gdb, "200", "Петров", "79997654321", 0)

	ivanCode, err := svc.IssueCode(ctx, ivan.ID)
	require.NoError(t, err)
	petrCode, err := svc.IssueCode(ctx, petr.ID)
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, "100", "no-such-code")
	assert.ErrorIs(t, err, ErrCodeInvalid)

	_, err = svc.Redeem(ctx, "100", petrCode.Code.Code)
	assert.ErrorIs(t, err, ErrCodeNotOwned)

	_, err = svc.Redeem(ctx, "300", ivanCode.Code.Code)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Redeem(ctx, "100", ivanCode.Code.Code)
	require.NoError(t, err)

	// same code again: it is used now
	_, err = svc.Redeem(ctx, "100", ivanCode.Code.Code)
	assert.ErrorIs(t, err, ErrCodeInvalid)

	// a second valid code owned by the customer on the same day
	extra := models.DailyCode{Code: "135790", CustomerID: ivan.ID, IssuedOn: svc.Today()}
	require.NoError(t, gdb.Create(&extra).Error)
	_, err = svc.Redeem(ctx, "100", "135790")
	assert.ErrorIs(t, err, ErrAlreadyRedeemedToday)

	// next day the limit resets
	clk.Advance(24 * time.Hour)
	next, err := svc.IssueCode(ctx, ivan.ID)
	require.NoError(t, err)
	r, err := svc.Redeem(ctx, "100", next.Code.Code)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Customer.Points)
}

func TestRedeem_PointsStayBelowThreshold(t *testing.T) {
	const threshold = 3
	svc, gdb, clk := newTestService(t, threshold)
	ctx := context.Background()
	c := seedCustomer(t, gdb, "100", "Иванов", "79991234567", 0)

	rewards := 0
	for day := 0; day < 10; day++ {
		issued, err := svc.IssueCode(ctx, c.ID)
		require.NoError(t, err)
		r, err := svc.Redeem(ctx, "100", issued.Code.Code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.Customer.Points, 0)
		assert.Less(t, r.Customer.Points, threshold)
		if r.Rewarded {
			rewards++
			assert.Zero(t, r.Customer.Points)
		}
		clk.Advance(24 * time.Hour)
	}
	assert.Equal(t, 10/threshold, rewards)
}

func TestAdjustPoints(t *testing.T) {
	svc, gdb, _ := newTestService(t, 7)
	ctx := context.Background()
	c := seedCustomer(t, gdb, "100", "Иванов", "79991234567", 5)
	require.NoError(t, gdb.Create(&models.Staff{TelegramID: "1", IsAdmin: true}).Error)
	require.NoError(t, gdb.Create(&models.Staff{TelegramID: "2"}).Error)

	_, err := svc.AdjustPoints(ctx, "2", c.ID, 1)
	assert.ErrorIs(t, err, ErrForbidden)

	adj, err := svc.AdjustPoints(ctx, "1", c.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, adj.Before)
	assert.Equal(t, 2, adj.Rewards)
	assert.Equal(t, 1, adj.Customer.Points)

	adj, err = svc.AdjustPoints(ctx, "1", c.ID, -5)
	require.NoError(t, err)
	assert.Zero(t, adj.Customer.Points)

	var stored models.Customer
	gdb.First(&stored, c.ID)
	assert.Zero(t, stored.Points)
	assert.Equal(t, 2, stored.Rewards)

	_, err = svc.AdjustPoints(ctx, "1", 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddStaff(t *testing.T) {
	svc, gdb, _ := newTestService(t, 7)
	ctx := context.Background()
	require.NoError(t, gdb.Create(&models.Staff{TelegramID: "1", IsAdmin: true}).Error)

	st, err := svc.AddStaff(ctx, "1", "555")
	require.NoError(t, err)
	assert.False(t, st.IsAdmin)
	assert.Equal(t, "1", st.AddedBy)

	_, err = svc.AddStaff(ctx, "1", "555")
	assert.ErrorIs(t, err, ErrStaffExists)

	_, err = svc.AddStaff(ctx, "555", "777")
	assert.ErrorIs(t, err, ErrForbidden)

	var n int64
	gdb.Model(&models.Staff{}).Where("telegram_id = ?", "777").Count(&n)
	assert.Zero(t, n)
}

func TestResolveRole(t *testing.T) {
	svc, gdb, _ := newTestService(t, 7)
	ctx := context.Background()
	require.NoError(t, gdb.Create(&models.Staff{TelegramID: "1", IsAdmin: true}).Error)
	require.NoError(t, gdb.Create(&models.Staff{TelegramID: "2"}).Error)
	seedCustomer(t, gdb, "1", "Админов", "79990000001", 0)
	seedCustomer(t, gdb, "3", "Иванов", "79990000003", 0)

	cases := map[string]Role{"1": RoleAdmin, "2": RoleStaff, "3": RoleCustomer, "4": RoleUnregistered}
	for id, want := range cases {
		for i := 0; i < 3; i++ {
			got, err := svc.ResolveRole(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, want, got, id)
		}
	}
}

func TestPurgeCodesBefore(t *testing.T) {
	svc, gdb, _ := newTestService(t, 7)
	ctx := context.Background()
	for i, day := range []string{"2026-10-13", "2026-10-14", "2026-10-15", "2026-10-16"} {
		code := models.DailyCode{Code: "00000" + string(rune('0'+i)), CustomerID: 1, IssuedOn: day}
		require.NoError(t, gdb.Create(&code).Error)
	}
	assert.Equal(t, "2026-10-15", svc.Yesterday())

	n, err := svc.PurgeCodesBefore(ctx, svc.Yesterday())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	var left []string
	gdb.Model(&models.DailyCode{}).Order("issued_on").Pluck("issued_on", &left)
	assert.Equal(t, []string{"2026-10-15", "2026-10-16"}, left)
}

func TestActiveCode(t *testing.T) {
	svc, gdb, clk := newTestService(t, 7)
	ctx := context.Background()
	c := seedCustomer(t, gdb, "100", "Иванов", "79991234567", 0)
	issued, err := svc.IssueCode(ctx, c.ID)
	require.NoError(t, err)

	_, err = svc.ActiveCode(ctx, issued.Code.Code)
	require.NoError(t, err)

	clk.Advance(24 * time.Hour)
	_, err = svc.ActiveCode(ctx, issued.Code.Code)
	assert.ErrorIs(t, err, ErrNotFound)
}

// sequence hands out the given codes in order, repeating the last one.
func sequence(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c, nil
	}
}

func TestIssueCode_RetriesOnCollision(t *testing.T) {
	_, gdb, clk := newTestService(t, 7)
	svc := New(gdb, Options{Threshold: 7, Location: moscow, Clock: clk,
		NewCode: sequence("111111", "111111", "111111", "222222")}, zap.NewNop())
	ctx := context.Background()
	a := seedCustomer(t, gdb, "1", "Иванов", "79990000001", 0)
	b := seedCustomer(t, gdb, "2", "Петров", "79990000002", 0)

	first, err := svc.IssueCode(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "111111", first.Code.Code)

	second, err := svc.IssueCode(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "222222", second.Code.Code)
	assert.True(t, second.Created)

	var n int64
	require.NoError(t, gdb.Model(&models.DailyCode{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestIssueCode_CodeSpaceExhausted(t *testing.T) {
	_, gdb, clk := newTestService(t, 7)
	svc := New(gdb, Options{Threshold: 7, Location: moscow, Clock: clk,
		NewCode: sequence("333333")}, zap.NewNop())
	ctx := context.Background()
	a := seedCustomer(t, gdb, "1", "Иванов", "79990000001", 0)
	b := seedCustomer(t, gdb, "2", "Петров", "79990000002", 0)

	_, err := svc.IssueCode(ctx, a.ID)
	require.NoError(t, err)

	_, err = svc.IssueCode(ctx, b.ID)
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)

	var n int64
	require.NoError(t, gdb.Model(&models.DailyCode{}).Where("customer_id = ?", b.ID).Count(&n).Error)
	assert.Zero(t, n, "rolled-back attempts leave no rows")

	again, err := svc.IssueCode(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "333333", again.Code.Code)
	assert.False(t, again.Created)
}
