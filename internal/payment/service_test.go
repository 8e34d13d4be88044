// AngelaMos | 2026
// service_test.go

package payment

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mystic-backend/internal/consultation"
	"github.com/carterperez-dev/mystic-backend/internal/core"
	"github.com/carterperez-dev/mystic-backend/internal/notify"
)

type mockConsultations struct {
	mock.Mock
}

func (m *mockConsultations) Get(
	ctx context.Context,
	requesterID string,
	kind consultation.Kind,
	id string,
) (*consultation.Consultation, error) {
	args := m.Called(ctx, requesterID, kind, id)
	c, _ := args.Get(0).(*consultation.Consultation)
	return c, args.Error(1)
}

func (m *mockConsultations) Feature(kind consultation.Kind) (*consultation.Feature, error) {
	f, ok := consultation.DefaultFeatures()[kind]
	if !ok {
		return nil, core.ErrNotFound
	}
	return f, nil
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Name() string { return ProviderMercadoPago }

func (m *mockGateway) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*Preference)
	return p, args.Error(1)
}

func (m *mockGateway) LookupPayment(ctx context.Context, externalID string) (*ProviderPayment, error) {
	args := m.Called(ctx, externalID)
	p, _ := args.Get(0).(*ProviderPayment)
	return p, args.Error(1)
}

type recordingNotifier struct {
	events []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.events = append(r.events, n)
	return nil
}

func (r *recordingNotifier) Close() error { return nil }

type fixture struct {
	svc      *Service
	sql      sqlmock.Sqlmock
	cons     *mockConsultations
	gateway  *mockGateway
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		sql:      sqlMock,
		cons:     &mockConsultations{},
		gateway:  &mockGateway{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewService(ServiceConfig{
		DB:            sqlx.NewDb(db, "pgx"),
		Consultations: f.cons,
		Gateway:       f.gateway,
		Notifier:      f.notifier,
		Currency:      "BRL",
		WebhookSecret: "hook-secret",
	})
	return f
}

const consultationID = "6f1c1d2e-8a43-4c59-9d7e-3f0c7b1a2b3c"

func tarotConsultation(owner string) *consultation.Consultation {
	pending := consultation.PaymentPending
	return &consultation.Consultation{
		ID:            consultationID,
		Kind:          consultation.KindTarot,
		UserID:        owner,
		Questions:     consultation.List{"a?", "b?", "c?"},
		Tier:          "3",
		Price:         decimal.RequireFromString("7.00"),
		PaymentStatus: &pending,
		Status:        consultation.StatusPending,
	}
}

var paymentColumns = []string{
	"id", "user_id", "consultation_kind", "consultation_id", "amount", "currency",
	"payment_method", "preference_id", "external_payment_id", "status",
	"created_at", "updated_at",
}

func paymentRow(id, owner string, status Status) []driver.Value {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []driver.Value{
		id, owner, "tarot", consultationID, "7.00", "BRL",
		ProviderMercadoPago, "pref-1", nil, string(status), now, now,
	}
}

func TestCreatePreference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cons.On("Get", ctx, "user-1", consultation.KindTarot, consultationID).
		Return(tarotConsultation("user-1"), nil)
	f.gateway.On("CreatePreference", ctx, mock.MatchedBy(func(req PreferenceRequest) bool {
		return req.Title == "Leitura de Tarot - 3 perguntas" &&
			req.Quantity == 1 &&
			req.UnitPrice.Equal(decimal.RequireFromString("7")) &&
			req.Currency == "BRL" &&
			req.Reference != ""
	})).Return(&Preference{ID: "pref-1", InitPoint: "https://mp.example/pay"}, nil)

	now := time.Now()
	f.sql.ExpectQuery(`INSERT INTO payments`).
		WithArgs(sqlmock.AnyArg(), "user-1", consultation.KindTarot, consultationID,
			sqlmock.AnyArg(), "BRL", ProviderMercadoPago, StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	f.sql.ExpectExec(`UPDATE payments\s+SET preference_id`).
		WithArgs(sqlmock.AnyArg(), "pref-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	pref, err := f.svc.CreatePreference(ctx, "user-1", consultation.KindTarot, consultationID)
	require.NoError(t, err)

	assert.Equal(t, "https://mp.example/pay", pref.InitPoint)
	assert.Equal(t, "pref-1", pref.PreferenceID)
	assert.NotEmpty(t, pref.PaymentID)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "payment.created", f.notifier.events[0].Event)

	f.gateway.AssertExpectations(t)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestCreatePreferenceGatewayFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cons.On("Get", ctx, "user-1", consultation.KindTarot, consultationID).
		Return(tarotConsultation("user-1"), nil)
	f.gateway.On("CreatePreference", ctx, mock.Anything).
		Return(nil, errors.Join(core.ErrPaymentProvider, errors.New("timeout")))

	now := time.Now()
	f.sql.ExpectQuery(`INSERT INTO payments`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	f.sql.ExpectQuery(`UPDATE payments\s+SET status = \$2`).
		WithArgs(sqlmock.AnyArg(), StatusFailed, nil).
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusFailed)...))

	_, err := f.svc.CreatePreference(ctx, "user-1", consultation.KindTarot, consultationID)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPaymentProvider)
	assert.Empty(t, f.notifier.events)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestCreatePreferenceRefusesFreeKinds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dream := &consultation.Consultation{
		ID:     consultationID,
		Kind:   consultation.KindDream,
		UserID: "user-1",
		Price:  decimal.Zero,
	}
	f.cons.On("Get", ctx, "user-1", consultation.KindDream, consultationID).Return(dream, nil)

	_, err := f.svc.CreatePreference(ctx, "user-1", consultation.KindDream, consultationID)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	f.gateway.AssertNotCalled(t, "CreatePreference", mock.Anything, mock.Anything)
}

func TestCreatePreferenceForeignConsultation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cons.On("Get", ctx, "user-2", consultation.KindTarot, consultationID).
		Return(nil, core.ErrNotFound)

	_, err := f.svc.CreatePreference(ctx, "user-2", consultation.KindTarot, consultationID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateStatusApprovedMarksConsultationPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	external := "mp-99"

	f.sql.ExpectBegin()
	f.sql.ExpectQuery(`SELECT .* FROM payments WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusPending)...))
	f.sql.ExpectQuery(`UPDATE payments`).
		WithArgs("p-1", StatusApproved, external).
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusApproved)...))
	f.sql.ExpectExec(`UPDATE tarot_consultations\s+SET payment_status = \$2, updated_at = NOW\(\)\s+WHERE id = \$1$`).
		WithArgs(consultationID, consultation.PaymentCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.sql.ExpectCommit()

	p, err := f.svc.UpdateStatus(ctx, "user-1", "p-1", StatusApproved, &external)
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, p.Status)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "payment.approved", f.notifier.events[0].Event)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestUpdateStatusNonOwnerChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sql.ExpectBegin()
	f.sql.ExpectQuery(`SELECT .* FROM payments WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusPending)...))
	f.sql.ExpectRollback()

	_, err := f.svc.UpdateStatus(ctx, "intruder", "p-1", StatusApproved, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, f.notifier.events)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestUpdateStatusRollsBackWhenConsultationMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sql.ExpectBegin()
	f.sql.ExpectQuery(`SELECT .* FROM payments`).
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusPending)...))
	f.sql.ExpectQuery(`UPDATE payments`).
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusFailed)...))
	f.sql.ExpectExec(`UPDATE tarot_consultations`).
		WithArgs(consultationID, consultation.PaymentFailed, consultation.PaymentCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.sql.ExpectQuery(`SELECT EXISTS`).
		WithArgs(consultationID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	f.sql.ExpectRollback()

	_, err := f.svc.UpdateStatus(ctx, "user-1", "p-1", StatusFailed, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), "user-1", "p-1", Status("paid"), nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestHandleWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.HandleWebhook(ctx, "wrong", WebhookEvent{Reference: "p-1", Status: "approved"})
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	f.sql.ExpectBegin()
	f.sql.ExpectQuery(`SELECT .* FROM payments`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusPending)...))
	f.sql.ExpectQuery(`UPDATE payments`).
		WithArgs("p-1", StatusRefunded, "mp-5").
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusRefunded)...))
	f.sql.ExpectCommit()

	p, err := f.svc.HandleWebhook(ctx, "hook-secret", WebhookEvent{
		Reference:  "p-1",
		ExternalID: "mp-5",
		Status:     "charged_back",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, p.Status)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestGetScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sql.ExpectQuery(`SELECT .* FROM payments WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusPending)...))

	_, err := f.svc.Get(ctx, "user-2", "p-1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateStatusFailedKeepsPaidConsultation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sql.ExpectBegin()
	f.sql.ExpectQuery(`SELECT .* FROM payments WHERE id = \$1`).
		WithArgs("p-2").
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-2", "user-1", StatusPending)...))
	f.sql.ExpectQuery(`UPDATE payments`).
		WithArgs("p-2", StatusFailed, nil).
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-2", "user-1", StatusFailed)...))
	f.sql.ExpectExec(`UPDATE tarot_consultations\s+SET payment_status = \$2, updated_at = NOW\(\)\s+WHERE id = \$1 AND payment_status IS DISTINCT FROM \$3`).
		WithArgs(consultationID, consultation.PaymentFailed, consultation.PaymentCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.sql.ExpectQuery(`SELECT EXISTS`).
		WithArgs(consultationID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	f.sql.ExpectCommit()

	p, err := f.svc.UpdateStatus(ctx, "user-1", "p-2", StatusFailed, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, p.Status)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestUpdateStatusApprovedOnlyMovesToRefunded(t *testing.T) {
	for _, next := range []Status{StatusPending, StatusFailed} {
		t.Run(string(next), func(t *testing.T) {
			f := newFixture(t)

			f.sql.ExpectBegin()
			f.sql.ExpectQuery(`SELECT .* FROM payments WHERE id = \$1`).
				WithArgs("p-1").
				WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusApproved)...))
			f.sql.ExpectRollback()

			_, err := f.svc.UpdateStatus(context.Background(), "user-1", "p-1", next, nil)
			assert.ErrorIs(t, err, core.ErrConflict)
			assert.ErrorIs(t, err, ErrStatusRegression)
			assert.NoError(t, f.sql.ExpectationsWereMet())
		})
	}
}

func TestUpdateStatusSecondApprovalConflicts(t *testing.T) {
	f := newFixture(t)

	f.sql.ExpectBegin()
	f.sql.ExpectQuery(`SELECT .* FROM payments WHERE id = \$1`).
		WithArgs("p-2").
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-2", "user-1", StatusPending)...))
	f.sql.ExpectQuery(`UPDATE payments`).
		WithArgs("p-2", StatusApproved, nil).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_payments_one_approved"})
	f.sql.ExpectRollback()

	_, err := f.svc.UpdateStatus(context.Background(), "user-1", "p-2", StatusApproved, nil)
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Empty(t, f.notifier.events)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestHandleWebhookResolvesProviderPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.On("LookupPayment", ctx, "1234567").
		Return(&ProviderPayment{ID: "1234567", Reference: "p-1", Status: "approved"}, nil)

	f.sql.ExpectBegin()
	f.sql.ExpectQuery(`SELECT .* FROM payments WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusPending)...))
	f.sql.ExpectQuery(`UPDATE payments`).
		WithArgs("p-1", StatusApproved, "1234567").
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusApproved)...))
	f.sql.ExpectExec(`UPDATE tarot_consultations`).
		WithArgs(consultationID, consultation.PaymentCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.sql.ExpectCommit()

	p, err := f.svc.HandleWebhook(ctx, "hook-secret", WebhookEvent{Topic: "payment", ExternalID: "1234567"})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, p.Status)
	f.gateway.AssertExpectations(t)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestHandleWebhookIgnoresOtherTopics(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.HandleWebhook(context.Background(), "hook-secret",
		WebhookEvent{Topic: "merchant_order", ExternalID: "77"})
	require.NoError(t, err)
	assert.Nil(t, p)
	f.gateway.AssertNotCalled(t, "LookupPayment", mock.Anything, mock.Anything)
}

func TestWebhookPayloadEvent(t *testing.T) {
	var payload WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(`{
		"action": "payment.updated",
		"api_version": "v1",
		"data": {"id": "1234567"},
		"id": 998877,
		"live_mode": false,
		"type": "payment"
	}`), &payload))

	assert.Equal(t, WebhookEvent{Topic: "payment", ExternalID: "1234567"}, payload.Event())

	var flat WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(`{"external_reference":"p-1","id":"mp-5","status":"approved"}`), &flat))
	assert.Equal(t, WebhookEvent{Reference: "p-1", ExternalID: "mp-5", Status: "approved"}, flat.Event())

	var nested WebhookPayload
	require.NoError(t, json.Unmarshal(
		[]byte(`{"data":{"id":"mp-77","external_reference":"pay-1","status":"approved"}}`), &nested))
	assert.Equal(t, WebhookEvent{Reference: "pay-1", ExternalID: "mp-77", Status: "approved"}, nested.Event())
}

func TestHandleWebhookIgnoresStaleStatus(t *testing.T) {
	f := newFixture(t)

	f.sql.ExpectBegin()
	f.sql.ExpectQuery(`SELECT .* FROM payments WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(paymentRow("p-1", "user-1", StatusApproved)...))
	f.sql.ExpectCommit()

	p, err := f.svc.HandleWebhook(context.Background(), "hook-secret", WebhookEvent{
		Reference:  "p-1",
		ExternalID: "mp-5",
		Status:     "in_process",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, p.Status)
	assert.Empty(t, f.notifier.events)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestReadsDegradeWhenStoreUnreachable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	f.sql.ExpectQuery(`SELECT .* FROM payments\s+WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnError(refused)
	f.sql.ExpectQuery(`SELECT .* FROM payments WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnError(refused)

	items, err := f.svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = f.svc.Get(ctx, "user-1", "p-1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestServiceWithoutDatabase(t *testing.T) {
	svc := NewService(ServiceConfig{Gateway: &mockGateway{}})
	ctx := context.Background()

	items, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.Get(ctx, "user-1", "p-1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.UpdateStatus(ctx, "user-1", "p-1", StatusApproved, nil)
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
}
