package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/quotar/internal/clock"
	"github.com/smallbiznis/quotar/internal/config"
	customerdomain "github.com/smallbiznis/quotar/internal/customer/domain"
	customerrepo "github.com/smallbiznis/quotar/internal/customer/repository"
	"github.com/smallbiznis/quotar/internal/money"
	"github.com/smallbiznis/quotar/internal/providers/email"
	"github.com/smallbiznis/quotar/internal/providers/pdf"
	"github.com/smallbiznis/quotar/internal/quotation/domain"
	"github.com/smallbiznis/quotar/internal/quotation/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type capturePDF struct {
	calls int
	last  pdf.QuotationData
	err   error
}

func (p *capturePDF) GenerateQuotation(ctx context.Context, data pdf.QuotationData) (io.Reader, error) {
	p.calls++
	p.last = data
	if p.err != nil {
		return nil, p.err
	}
	return bytes.NewReader([]byte("%PDF-1.4 fake")), nil
}

type captureEmail struct {
	sends      int
	to         []string
	subject    string
	body       string
	attachment *email.Attachment
	err        error
}

func (e *captureEmail) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	e.sends++
	e.to = to
	e.subject = subject
	e.body = htmlBody
	e.attachment = nil
	return e.err
}

func (e *captureEmail) SendWithAttachment(ctx context.Context, to []string, subject string, htmlBody string, attachment email.Attachment) error {
	e.sends++
	e.to = to
	e.subject = subject
	e.body = htmlBody
	e.attachment = &attachment
	return e.err
}

type fixture struct {
	db    *gorm.DB
	clk   *clock.FakeClock
	pdf   *capturePDF
	email *captureEmail
	svc   domain.Service
}

func setupService(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := gdb.AutoMigrate(&customerdomain.Customer{}, &domain.Quotation{}, &domain.QuotationItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	pdfFake := &capturePDF{}
	emailFake := &captureEmail{}

	svc := New(Params{
		DB:       gdb,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Profile:  config.NewStaticCompanyProfileHolder(config.DefaultCompanyProfile()),
		Repo:     repository.Provide(),
		Customer: customerrepo.Provide(),
		PDF:      pdfFake,
		Email:    emailFake,
	})

	return &fixture{db: gdb, clk: clk, pdf: pdfFake, email: emailFake, svc: svc}
}

func baseCreateRequest() domain.CreateQuotationRequest {
	return domain.CreateQuotationRequest{
		Customer: domain.CustomerInput{
			CompanyName:   "Acme Corp",
			ContactPerson: "Jane Smith",
			Email:         "jane@acme.test",
			Address:       "1 Acme Way",
		},
		Salesperson: "Sam Seller",
		Items: []domain.ItemInput{
			{ProductName: "Widget", Quantity: 3, UnitPrice: 25.00},
		},
	}
}

func boolPtr(b bool) *bool { return &b }

func float64Ptr(f float64) *float64 { return &f }

func TestCreateComputesAndPersistsTotals(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	req := baseCreateRequest()
	req.Items = []domain.ItemInput{
		{ProductName: "Widget", Quantity: 3, UnitPrice: 25.00},
		{ProductName: "Shipping insert", Quantity: 1, UnitPrice: 10.00, Taxable: boolPtr(false)},
	}
	req.OtherFees = 2.50

	created, err := f.svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.QuotationNumber != "QT-20240315-001" {
		t.Fatalf("quotation number = %q, want QT-20240315-001", created.QuotationNumber)
	}
	if created.Status != domain.StatusDraft {
		t.Fatalf("status = %q, want draft", created.Status)
	}
	if created.SubtotalAmount != 8500 {
		t.Fatalf("subtotal = %d, want 8500", created.SubtotalAmount)
	}
	if created.TaxRateUnits != 500 {
		t.Fatalf("tax rate units = %d, want 500", created.TaxRateUnits)
	}
	// tax is derived from the full subtotal in one rounding step
	if created.TaxAmount != 425 {
		t.Fatalf("tax amount = %d, want 425", created.TaxAmount)
	}
	if created.OtherFees != 250 {
		t.Fatalf("other fees = %d, want 250", created.OtherFees)
	}
	if created.TotalAmount != 8925 {
		t.Fatalf("total = %d, want 8925", created.TotalAmount)
	}
	if len(created.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(created.Items))
	}
	if created.Customer == nil || created.Customer.CompanyName != "Acme Corp" {
		t.Fatalf("customer not loaded: %+v", created.Customer)
	}

	got, err := f.svc.Get(ctx, domain.GetQuotationRequest{ID: created.ID.String()})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalAmount != created.TotalAmount || got.QuotationNumber != created.QuotationNumber {
		t.Fatalf("reload mismatch: %+v vs %+v", got, created)
	}
}

func TestTotalExcludesOtherFees(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	req := baseCreateRequest()
	req.OtherFees = 2.50

	created, err := f.svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.OtherFees != 250 {
		t.Fatalf("other fees = %d, want 250", created.OtherFees)
	}
	if created.TotalAmount != created.SubtotalAmount+created.TaxAmount {
		t.Fatalf("total %d != subtotal %d + tax %d",
			created.TotalAmount, created.SubtotalAmount, created.TaxAmount)
	}

	updated, err := f.svc.Update(ctx, domain.UpdateQuotationRequest{
		ID:        created.ID.String(),
		Customer:  baseCreateRequest().Customer,
		OtherFees: 9.99,
		Items:     baseCreateRequest().Items,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.OtherFees != 999 {
		t.Fatalf("other fees = %d, want 999", updated.OtherFees)
	}
	if updated.TotalAmount != updated.SubtotalAmount+updated.TaxAmount {
		t.Fatalf("total %d != subtotal %d + tax %d",
			updated.TotalAmount, updated.SubtotalAmount, updated.TaxAmount)
	}
}

func TestCreateAssignsSequentialNumbers(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	for i, want := range []string{"QT-20240315-001", "QT-20240315-002", "QT-20240315-003"} {
		created, err := f.svc.Create(ctx, baseCreateRequest())
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if created.QuotationNumber != want {
			t.Fatalf("create %d: number = %q, want %q", i, created.QuotationNumber, want)
		}
		f.clk.Advance(time.Second)
	}
}

func TestCreateResetsSequenceOnNewDay(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, baseCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.QuotationNumber != "QT-20240315-001" {
		t.Fatalf("number = %q, want QT-20240315-001", first.QuotationNumber)
	}

	f.clk.Set(time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC))

	second, err := f.svc.Create(ctx, baseCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.QuotationNumber != "QT-20240316-001" {
		t.Fatalf("number = %q, want QT-20240316-001", second.QuotationNumber)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*domain.CreateQuotationRequest)
		wantErr error
	}{
		{
			name:    "missing company name",
			mutate:  func(r *domain.CreateQuotationRequest) { r.Customer.CompanyName = "  " },
			wantErr: domain.ErrInvalidCompanyName,
		},
		{
			name:    "malformed email",
			mutate:  func(r *domain.CreateQuotationRequest) { r.Customer.Email = "not-an-email" },
			wantErr: domain.ErrInvalidEmail,
		},
		{
			name:    "no items",
			mutate:  func(r *domain.CreateQuotationRequest) { r.Items = nil },
			wantErr: domain.ErrNoItems,
		},
		{
			name:    "zero quantity",
			mutate:  func(r *domain.CreateQuotationRequest) { r.Items[0].Quantity = 0 },
			wantErr: domain.ErrInvalidItem,
		},
		{
			name:    "negative unit price",
			mutate:  func(r *domain.CreateQuotationRequest) { r.Items[0].UnitPrice = -1 },
			wantErr: domain.ErrInvalidItem,
		},
		{
			name:    "tax rate above 100",
			mutate:  func(r *domain.CreateQuotationRequest) { r.TaxRatePercent = float64Ptr(120) },
			wantErr: domain.ErrInvalidTaxRate,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseCreateRequest()
			tc.mutate(&req)
			_, err := f.svc.Create(ctx, req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateRollsBackOnItemInsertFailure(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	if err := f.db.Exec("DROP TABLE quotation_items").Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}

	_, err := f.svc.Create(ctx, baseCreateRequest())
	if err == nil {
		t.Fatal("expected create to fail")
	}

	var quotations, customers int64
	if err := f.db.Raw("SELECT COUNT(*) FROM quotations").Scan(&quotations).Error; err != nil {
		t.Fatalf("count quotations: %v", err)
	}
	if err := f.db.Raw("SELECT COUNT(*) FROM customers").Scan(&customers).Error; err != nil {
		t.Fatalf("count customers: %v", err)
	}
	if quotations != 0 || customers != 0 {
		t.Fatalf("rollback left quotations=%d customers=%d, want 0/0", quotations, customers)
	}
}

func TestUpdateRecomputesTotalsAndKeepsNumber(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, baseCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.svc.Update(ctx, domain.UpdateQuotationRequest{
		ID: created.ID.String(),
		Customer: domain.CustomerInput{
			CompanyName: "Acme Corp",
			Email:       "billing@acme.test",
		},
		TaxRatePercent: float64Ptr(10),
		OtherFees:      1.00,
		Items: []domain.ItemInput{
			{ProductName: "Gadget", Quantity: 2, UnitPrice: 50.00},
			{ProductName: "Gizmo", Quantity: 1, UnitPrice: 5.00},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.QuotationNumber != created.QuotationNumber {
		t.Fatalf("number changed from %q to %q", created.QuotationNumber, updated.QuotationNumber)
	}
	if updated.Status != created.Status {
		t.Fatalf("status changed from %q to %q", created.Status, updated.Status)
	}
	if updated.SubtotalAmount != 10500 {
		t.Fatalf("subtotal = %d, want 10500", updated.SubtotalAmount)
	}
	if updated.TaxRateUnits != 1000 {
		t.Fatalf("tax rate units = %d, want 1000", updated.TaxRateUnits)
	}
	if updated.TaxAmount != 1050 {
		t.Fatalf("tax amount = %d, want 1050", updated.TaxAmount)
	}
	if updated.OtherFees != 100 {
		t.Fatalf("other fees = %d, want 100", updated.OtherFees)
	}
	if updated.TotalAmount != 11550 {
		t.Fatalf("total = %d, want 11550", updated.TotalAmount)
	}
	if len(updated.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(updated.Items))
	}
	for _, item := range updated.Items {
		if item.ProductName != "Gadget" && item.ProductName != "Gizmo" {
			t.Fatalf("stale item survived update: %+v", item)
		}
	}
	if updated.Customer == nil || updated.Customer.Email != "billing@acme.test" {
		t.Fatalf("customer not updated: %+v", updated.Customer)
	}
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, baseCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := created.ID.String()

	if _, err := f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: id, Status: "accepted"}); !errors.Is(err, domain.ErrStatusTransition) {
		t.Fatalf("draft->accepted err = %v, want %v", err, domain.ErrStatusTransition)
	}
	if _, err := f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: id, Status: "bogus"}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("invalid status err = %v, want %v", err, domain.ErrInvalidStatus)
	}

	sent, err := f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: id, Status: "sent"})
	if err != nil {
		t.Fatalf("draft->sent: %v", err)
	}
	if sent.Status != domain.StatusSent {
		t.Fatalf("status = %q, want sent", sent.Status)
	}

	accepted, err := f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: id, Status: "accepted"})
	if err != nil {
		t.Fatalf("sent->accepted: %v", err)
	}
	if accepted.Status != domain.StatusAccepted {
		t.Fatalf("status = %q, want accepted", accepted.Status)
	}

	if _, err := f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: id, Status: "rejected"}); !errors.Is(err, domain.ErrStatusTransition) {
		t.Fatalf("accepted->rejected err = %v, want %v", err, domain.ErrStatusTransition)
	}
}

func TestDeleteRemovesQuotationAndItems(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, baseCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.Delete(ctx, domain.DeleteQuotationRequest{ID: created.ID.String()}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.svc.Get(ctx, domain.GetQuotationRequest{ID: created.ID.String()}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get after delete err = %v, want %v", err, domain.ErrNotFound)
	}

	var items int64
	if err := f.db.Raw("SELECT COUNT(*) FROM quotation_items WHERE quotation_id = ?", created.ID).Scan(&items).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if items != 0 {
		t.Fatalf("items left behind = %d, want 0", items)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		created, err := f.svc.Create(ctx, baseCreateRequest())
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, created.ID.String())
		f.clk.Advance(time.Second)
	}

	if _, err := f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: ids[0], Status: "sent"}); err != nil {
		t.Fatalf("update status: %v", err)
	}

	page, err := f.svc.List(ctx, domain.ListQuotationRequest{PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Quotations) != 2 {
		t.Fatalf("page size = %d, want 2", len(page.Quotations))
	}
	if !page.HasMore || page.NextPageToken == "" {
		t.Fatalf("expected another page, got has_more=%v token=%q", page.HasMore, page.NextPageToken)
	}
	// newest first
	if page.Quotations[0].QuotationNumber != "QT-20240315-003" {
		t.Fatalf("first row = %q, want QT-20240315-003", page.Quotations[0].QuotationNumber)
	}

	rest, err := f.svc.List(ctx, domain.ListQuotationRequest{PageSize: 2, PageToken: page.NextPageToken})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(rest.Quotations) != 1 {
		t.Fatalf("page 2 size = %d, want 1", len(rest.Quotations))
	}
	if rest.HasMore {
		t.Fatal("unexpected has_more on final page")
	}
	if rest.Quotations[0].QuotationNumber != "QT-20240315-001" {
		t.Fatalf("page 2 row = %q, want QT-20240315-001", rest.Quotations[0].QuotationNumber)
	}

	sent, err := f.svc.List(ctx, domain.ListQuotationRequest{Status: "sent"})
	if err != nil {
		t.Fatalf("list sent: %v", err)
	}
	if len(sent.Quotations) != 1 || sent.Quotations[0].Status != domain.StatusSent {
		t.Fatalf("sent filter returned %+v", sent.Quotations)
	}

	byNumber, err := f.svc.List(ctx, domain.ListQuotationRequest{Number: "QT-20240315-002"})
	if err != nil {
		t.Fatalf("list by number: %v", err)
	}
	if len(byNumber.Quotations) != 1 || byNumber.Quotations[0].QuotationNumber != "QT-20240315-002" {
		t.Fatalf("number filter returned %+v", byNumber.Quotations)
	}

	if _, err := f.svc.List(ctx, domain.ListQuotationRequest{Status: "bogus"}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("bogus status err = %v, want %v", err, domain.ErrInvalidStatus)
	}
}

func TestRenderPDFReadsPersistedAmounts(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, baseCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Tamper with the stored totals to prove the renderer reads the
	// persisted integers instead of recomputing from line items.
	if err := f.db.Exec("UPDATE quotations SET subtotal_amount = 12345, tax_amount = 617, total_amount = 12962 WHERE id = ?", created.ID).Error; err != nil {
		t.Fatalf("tamper: %v", err)
	}

	rendered, err := f.svc.RenderPDF(ctx, domain.GetQuotationRequest{ID: created.ID.String()})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(rendered.Document) == 0 {
		t.Fatal("expected rendered document bytes")
	}
	if rendered.QuotationNumber != created.QuotationNumber {
		t.Fatalf("rendered number = %q, want %q", rendered.QuotationNumber, created.QuotationNumber)
	}
	if f.pdf.calls != 1 {
		t.Fatalf("pdf provider calls = %d, want 1", f.pdf.calls)
	}

	data := f.pdf.last
	if data.Subtotal != money.FormatMinorUnits(12345, "$") {
		t.Fatalf("subtotal = %q, want %q", data.Subtotal, money.FormatMinorUnits(12345, "$"))
	}
	if data.TaxAmount != money.FormatMinorUnits(617, "$") {
		t.Fatalf("tax = %q, want %q", data.TaxAmount, money.FormatMinorUnits(617, "$"))
	}
	if data.Total != money.FormatMinorUnits(12962, "$") {
		t.Fatalf("total = %q, want %q", data.Total, money.FormatMinorUnits(12962, "$"))
	}
	if data.TaxLabel != "Tax (5%)" {
		t.Fatalf("tax label = %q", data.TaxLabel)
	}
	if data.QuotationNumber != created.QuotationNumber {
		t.Fatalf("number = %q, want %q", data.QuotationNumber, created.QuotationNumber)
	}
	if len(data.Items) != 1 || data.Items[0].Qty != 3 {
		t.Fatalf("items = %+v", data.Items)
	}
}

func TestSendEmailsAttachmentAndMarksSent(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, baseCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sent, err := f.svc.Send(ctx, domain.SendQuotationRequest{ID: created.ID.String()})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if sent.Status != domain.StatusSent {
		t.Fatalf("status = %q, want sent", sent.Status)
	}
	if f.email.sends != 1 {
		t.Fatalf("email sends = %d, want 1", f.email.sends)
	}
	if len(f.email.to) != 1 || f.email.to[0] != "jane@acme.test" {
		t.Fatalf("to = %v, want customer email", f.email.to)
	}
	if f.email.attachment == nil {
		t.Fatal("expected a PDF attachment")
	}
	if f.email.attachment.Filename != created.QuotationNumber+".pdf" {
		t.Fatalf("attachment filename = %q", f.email.attachment.Filename)
	}
	if !strings.Contains(f.email.body, created.QuotationNumber) {
		t.Fatalf("body missing quotation number: %q", f.email.body)
	}
	if !strings.Contains(f.email.subject, created.QuotationNumber) {
		t.Fatalf("subject = %q", f.email.subject)
	}

	// Resending an already sent quotation keeps it sent.
	again, err := f.svc.Send(ctx, domain.SendQuotationRequest{ID: created.ID.String(), To: "override@acme.test"})
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if again.Status != domain.StatusSent {
		t.Fatalf("status after resend = %q, want sent", again.Status)
	}
	if f.email.to[0] != "override@acme.test" {
		t.Fatalf("resend to = %v, want override", f.email.to)
	}
}

func TestSendRejectsMissingRecipient(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, baseCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Send(ctx, domain.SendQuotationRequest{ID: created.ID.String(), To: "no-at-sign"}); !errors.Is(err, domain.ErrInvalidEmail) {
		t.Fatalf("err = %v, want %v", err, domain.ErrInvalidEmail)
	}
	if f.email.sends != 0 {
		t.Fatalf("email sends = %d, want 0", f.email.sends)
	}
}

func TestGetRejectsMalformedID(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	if _, err := f.svc.Get(ctx, domain.GetQuotationRequest{ID: "not-a-number"}); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("err = %v, want %v", err, domain.ErrInvalidID)
	}
	if _, err := f.svc.Get(ctx, domain.GetQuotationRequest{ID: "12345"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, domain.ErrNotFound)
	}
}
