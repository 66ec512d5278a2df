package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotar/internal/clock"
	"github.com/smallbiznis/quotar/internal/config"
	customerdomain "github.com/smallbiznis/quotar/internal/customer/domain"
	"github.com/smallbiznis/quotar/internal/money"
	"github.com/smallbiznis/quotar/internal/observability/metrics"
	"github.com/smallbiznis/quotar/internal/providers/email"
	"github.com/smallbiznis/quotar/internal/providers/pdf"
	"github.com/smallbiznis/quotar/internal/quotation/domain"
	"github.com/smallbiznis/quotar/internal/quotation/number"
	"github.com/smallbiznis/quotar/internal/quotation/render"
	"github.com/smallbiznis/quotar/pkg/db"
	"github.com/smallbiznis/quotar/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// numberAllocRetries bounds how often a create transaction is replayed
// after a duplicate quotation number.
const numberAllocRetries = 5

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Profile  *config.CompanyProfileHolder
	Repo     domain.Repository
	Customer customerdomain.Repository
	PDF      pdf.Provider
	Email    email.Provider
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	profile *config.CompanyProfileHolder

	repo         domain.Repository
	customerrepo customerdomain.Repository
	pdfProvider  pdf.Provider
	emailer      email.Provider
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("quotation.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		profile: p.Profile,

		repo:         p.Repo,
		customerrepo: p.Customer,
		pdfProvider:  p.PDF,
		emailer:      p.Email,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateQuotationRequest) (domain.Quotation, error) {
	customer, err := s.normalizeCustomer(req.Customer)
	if err != nil {
		return domain.Quotation{}, err
	}

	profile := s.profile.Get()

	lines, items, err := s.normalizeItems(req.Items)
	if err != nil {
		return domain.Quotation{}, err
	}

	taxRateUnits, err := s.resolveTaxRate(req.TaxRatePercent, profile)
	if err != nil {
		return domain.Quotation{}, err
	}

	fin := money.Compute(lines, taxRateUnits)
	otherFees := money.ToMinorUnits(req.OtherFees)

	now := s.clock.Now().UTC()
	issuedDate := now
	if req.IssuedDate != nil {
		issuedDate = req.IssuedDate.UTC()
	}

	allocator := number.NewAllocator(profile.NumberTemplate, s.clock)

	var created domain.Quotation
	for attempt := 0; attempt < numberAllocRetries; attempt++ {
		customer.ID = s.genID.Generate()
		customer.CreatedAt = now
		customer.UpdatedAt = now

		quotation := domain.Quotation{
			ID:             s.genID.Generate(),
			CustomerID:     customer.ID,
			Salesperson:    strings.TrimSpace(req.Salesperson),
			IssuedDate:     issuedDate,
			ValidUntil:     req.ValidUntil,
			ShippingDate:   req.ShippingDate,
			PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
			ShippingMethod: strings.TrimSpace(req.ShippingMethod),
			SubtotalAmount: fin.Subtotal,
			TaxRateUnits:   taxRateUnits,
			TaxAmount:      fin.TaxAmount,
			OtherFees:      otherFees,
			TotalAmount:    fin.Total,
			Status:         domain.StatusDraft,
			Notes:          strings.TrimSpace(req.Notes),
			Metadata:       datatypes.JSONMap{},
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.customerrepo.Insert(ctx, tx, &customer); err != nil {
				return err
			}

			quotationNumber, err := allocator.Next(ctx, number.NewGormStore(tx))
			if err != nil {
				return err
			}
			quotation.QuotationNumber = quotationNumber

			if err := s.repo.Insert(ctx, tx, &quotation); err != nil {
				return err
			}

			rows := make([]domain.QuotationItem, 0, len(items))
			for _, item := range items {
				item.ID = s.genID.Generate()
				item.QuotationID = quotation.ID
				item.CreatedAt = now
				rows = append(rows, item)
			}
			return s.repo.InsertItems(ctx, tx, rows)
		})
		if err == nil {
			created = quotation
			break
		}
		if !db.IsDuplicateKeyErr(err) {
			return domain.Quotation{}, err
		}

		s.metrics.RecordNumberConflict(ctx)
		s.log.Warn("quotation number collision, retrying",
			zap.String("quotation_number", quotation.QuotationNumber),
			zap.Int("attempt", attempt+1),
		)
	}
	if err != nil {
		return domain.Quotation{}, domain.ErrNumberConflict
	}

	s.metrics.RecordQuotationCreated(ctx, string(created.Status))
	s.log.Info("quotation created",
		zap.String("quotation_number", created.QuotationNumber),
		zap.Int64("total_amount", created.TotalAmount),
	)

	return s.loadQuotation(ctx, created.ID)
}

func (s *Service) Get(ctx context.Context, req domain.GetQuotationRequest) (domain.Quotation, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Quotation{}, err
	}
	return s.loadQuotation(ctx, id)
}

func (s *Service) List(ctx context.Context, req domain.ListQuotationRequest) (domain.ListQuotationResponse, error) {
	filter := domain.ListQuotationFilter{
		Number:      strings.TrimSpace(req.Number),
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		if !domain.Status(status).Valid() {
			return domain.ListQuotationResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = domain.Status(status)
	}
	if value := strings.TrimSpace(req.CustomerID); value != "" {
		id, err := snowflake.ParseString(value)
		if err != nil {
			return domain.ListQuotationResponse{}, domain.ErrInvalidID
		}
		filter.CustomerID = id
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListQuotationResponse{}, err
	}

	pageInfo, items := pagination.BuildCursorPageInfo(items, pageSize, func(quotation *domain.Quotation) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        quotation.ID.String(),
			CreatedAt: quotation.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	quotations := make([]domain.Quotation, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		quotations = append(quotations, *item)
	}

	resp := domain.ListQuotationResponse{Quotations: quotations}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

// Update recomputes and overwrites subtotal, tax and total from the
// submitted lines. The quotation number never changes.
func (s *Service) Update(ctx context.Context, req domain.UpdateQuotationRequest) (domain.Quotation, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Quotation{}, err
	}

	existing, err := s.loadQuotation(ctx, id)
	if err != nil {
		return domain.Quotation{}, err
	}

	customer, err := s.normalizeCustomer(req.Customer)
	if err != nil {
		return domain.Quotation{}, err
	}

	profile := s.profile.Get()

	lines, items, err := s.normalizeItems(req.Items)
	if err != nil {
		return domain.Quotation{}, err
	}

	taxRateUnits := existing.TaxRateUnits
	if req.TaxRatePercent != nil {
		taxRateUnits, err = s.resolveTaxRate(req.TaxRatePercent, profile)
		if err != nil {
			return domain.Quotation{}, err
		}
	}

	fin := money.Compute(lines, taxRateUnits)
	otherFees := money.ToMinorUnits(req.OtherFees)
	now := s.clock.Now().UTC()

	quotation := existing
	quotation.Salesperson = strings.TrimSpace(req.Salesperson)
	if req.IssuedDate != nil {
		quotation.IssuedDate = req.IssuedDate.UTC()
	}
	quotation.ValidUntil = req.ValidUntil
	quotation.ShippingDate = req.ShippingDate
	quotation.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	quotation.ShippingMethod = strings.TrimSpace(req.ShippingMethod)
	quotation.SubtotalAmount = fin.Subtotal
	quotation.TaxRateUnits = taxRateUnits
	quotation.TaxAmount = fin.TaxAmount
	quotation.OtherFees = otherFees
	quotation.TotalAmount = fin.Total
	quotation.Notes = strings.TrimSpace(req.Notes)
	quotation.UpdatedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer.ID = existing.CustomerID
		customer.UpdatedAt = now
		if err := s.customerrepo.Update(ctx, tx, &customer); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, tx, &quotation); err != nil {
			return err
		}

		if err := s.repo.DeleteItems(ctx, tx, quotation.ID); err != nil {
			return err
		}
		rows := make([]domain.QuotationItem, 0, len(items))
		for _, item := range items {
			item.ID = s.genID.Generate()
			item.QuotationID = quotation.ID
			item.CreatedAt = now
			rows = append(rows, item)
		}
		return s.repo.InsertItems(ctx, tx, rows)
	})
	if err != nil {
		return domain.Quotation{}, err
	}

	return s.loadQuotation(ctx, quotation.ID)
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteQuotationRequest) error {
	id, err := s.parseID(req.ID)
	if err != nil {
		return err
	}

	if _, err := s.loadQuotation(ctx, id); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteItems(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, id)
	})
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (domain.Quotation, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Quotation{}, err
	}

	next := domain.Status(strings.TrimSpace(req.Status))
	if !next.Valid() {
		return domain.Quotation{}, domain.ErrInvalidStatus
	}

	existing, err := s.loadQuotation(ctx, id)
	if err != nil {
		return domain.Quotation{}, err
	}

	if !existing.Status.CanTransitionTo(next) {
		return domain.Quotation{}, domain.ErrStatusTransition
	}

	if err := s.repo.UpdateStatus(ctx, s.db, id, next); err != nil {
		return domain.Quotation{}, err
	}

	s.metrics.RecordStatusChange(ctx, string(next))

	return s.loadQuotation(ctx, id)
}

func (s *Service) RenderPDF(ctx context.Context, req domain.GetQuotationRequest) (domain.RenderedPDF, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.RenderedPDF{}, err
	}

	quotation, err := s.loadQuotation(ctx, id)
	if err != nil {
		return domain.RenderedPDF{}, err
	}

	doc, err := s.renderQuotationPDF(ctx, quotation)
	if err != nil {
		return domain.RenderedPDF{}, err
	}

	return domain.RenderedPDF{
		QuotationNumber: quotation.QuotationNumber,
		Document:        doc,
	}, nil
}

// renderQuotationPDF generates the PDF for an already loaded quotation.
func (s *Service) renderQuotationPDF(ctx context.Context, quotation domain.Quotation) ([]byte, error) {
	data := s.buildPDFData(quotation)
	reader, err := s.pdfProvider.GenerateQuotation(ctx, data)
	if err != nil {
		s.metrics.RecordPDFRender(ctx, "error")
		return nil, err
	}
	if reader == nil {
		s.metrics.RecordPDFRender(ctx, "skipped")
		return nil, nil
	}

	doc, err := io.ReadAll(reader)
	if err != nil {
		s.metrics.RecordPDFRender(ctx, "error")
		return nil, err
	}

	s.metrics.RecordPDFRender(ctx, "ok")
	return doc, nil
}

// Send emails the rendered quotation with the PDF attached and marks
// it sent.
func (s *Service) Send(ctx context.Context, req domain.SendQuotationRequest) (domain.Quotation, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Quotation{}, err
	}

	quotation, err := s.loadQuotation(ctx, id)
	if err != nil {
		return domain.Quotation{}, err
	}

	to := strings.TrimSpace(req.To)
	if to == "" && quotation.Customer != nil {
		to = quotation.Customer.Email
	}
	if to == "" || !strings.Contains(to, "@") {
		return domain.Quotation{}, domain.ErrInvalidEmail
	}

	profile := s.profile.Get()

	emailData := render.EmailData{
		CompanyName:     profile.Name,
		QuotationNumber: quotation.QuotationNumber,
		IssueDate:       quotation.IssuedDate.Format("Jan 2, 2006"),
		Total:           money.FormatMinorUnits(quotation.TotalAmount, profile.CurrencySymbol),
		Message:         strings.TrimSpace(req.Message),
	}
	if quotation.Customer != nil {
		emailData.CustomerName = quotation.Customer.CompanyName
		emailData.ContactPerson = quotation.Customer.ContactPerson
	}
	if quotation.ValidUntil != nil {
		emailData.ValidUntil = quotation.ValidUntil.Format("Jan 2, 2006")
	}

	body, err := render.EmailBody(emailData)
	if err != nil {
		return domain.Quotation{}, err
	}

	doc, err := s.renderQuotationPDF(ctx, quotation)
	if err != nil {
		return domain.Quotation{}, err
	}

	subject := render.EmailSubject(profile.Name, quotation.QuotationNumber)
	if len(doc) > 0 {
		err = s.emailer.SendWithAttachment(ctx, []string{to}, subject, body, email.Attachment{
			Filename:    quotation.QuotationNumber + ".pdf",
			ContentType: "application/pdf",
			Data:        doc,
		})
	} else {
		err = s.emailer.Send(ctx, []string{to}, subject, body)
	}
	if err != nil {
		s.metrics.RecordEmailSent(ctx, "error")
		return domain.Quotation{}, err
	}
	s.metrics.RecordEmailSent(ctx, "ok")

	if quotation.Status == domain.StatusDraft {
		if err := s.repo.UpdateStatus(ctx, s.db, id, domain.StatusSent); err != nil {
			return domain.Quotation{}, err
		}
		s.metrics.RecordStatusChange(ctx, string(domain.StatusSent))
	}

	s.log.Info("quotation sent",
		zap.String("quotation_number", quotation.QuotationNumber),
		zap.String("to", to),
	)

	return s.loadQuotation(ctx, id)
}

func (s *Service) buildPDFData(quotation domain.Quotation) pdf.QuotationData {
	profile := s.profile.Get()
	symbol := profile.CurrencySymbol

	data := pdf.QuotationData{
		CompanyName:    profile.Name,
		CompanyAddress: profile.Address,
		CompanyEmail:   profile.Email,
		CompanyPhone:   profile.Phone,
		BankDetails:    profile.BankDetails,

		QuotationNumber: quotation.QuotationNumber,
		IssueDate:       quotation.IssuedDate.Format("Jan 2, 2006"),
		Salesperson:     quotation.Salesperson,
		PaymentMethod:   quotation.PaymentMethod,
		ShippingMethod:  quotation.ShippingMethod,

		Subtotal:  money.FormatMinorUnits(quotation.SubtotalAmount, symbol),
		TaxLabel:  "Tax (" + money.FormatPercent(quotation.TaxRateUnits) + ")",
		TaxAmount: money.FormatMinorUnits(quotation.TaxAmount, symbol),
		Total:     money.FormatMinorUnits(quotation.TotalAmount, symbol),

		Notes: quotation.Notes,
	}
	if quotation.ValidUntil != nil {
		data.ValidUntil = quotation.ValidUntil.Format("Jan 2, 2006")
	}
	if quotation.Customer != nil {
		data.CustomerName = quotation.Customer.CompanyName
		data.CustomerContact = quotation.Customer.ContactPerson
		data.CustomerAddress = quotation.Customer.Address
		data.CustomerEmail = quotation.Customer.Email
	}

	for _, item := range quotation.Items {
		data.Items = append(data.Items, pdf.QuotationItem{
			Description: item.ProductName,
			Qty:         item.Quantity,
			UnitPrice:   money.FormatMinorUnits(item.UnitPrice, symbol),
			Amount:      money.FormatMinorUnits(item.Quantity*item.UnitPrice, symbol),
		})
	}

	return data
}

func (s *Service) loadQuotation(ctx context.Context, id snowflake.ID) (domain.Quotation, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Quotation{}, err
	}
	if item == nil {
		return domain.Quotation{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) normalizeCustomer(input domain.CustomerInput) (customerdomain.Customer, error) {
	companyName := strings.TrimSpace(input.CompanyName)
	if companyName == "" {
		return customerdomain.Customer{}, domain.ErrInvalidCompanyName
	}

	customerEmail := strings.TrimSpace(input.Email)
	if customerEmail == "" || !strings.Contains(customerEmail, "@") {
		return customerdomain.Customer{}, domain.ErrInvalidEmail
	}

	return customerdomain.Customer{
		CompanyName:   companyName,
		ContactPerson: strings.TrimSpace(input.ContactPerson),
		Phone:         strings.TrimSpace(input.Phone),
		Email:         customerEmail,
		Address:       strings.TrimSpace(input.Address),
		VATNumber:     strings.TrimSpace(input.VATNumber),
		Metadata:      datatypes.JSONMap{},
	}, nil
}

func (s *Service) normalizeItems(inputs []domain.ItemInput) ([]money.LineItem, []domain.QuotationItem, error) {
	if len(inputs) == 0 {
		return nil, nil, domain.ErrNoItems
	}

	lines := make([]money.LineItem, 0, len(inputs))
	items := make([]domain.QuotationItem, 0, len(inputs))
	for _, input := range inputs {
		name := strings.TrimSpace(input.ProductName)
		if name == "" || input.Quantity <= 0 || input.UnitPrice < 0 {
			return nil, nil, domain.ErrInvalidItem
		}

		taxable := true
		if input.Taxable != nil {
			taxable = *input.Taxable
		}

		unitPrice := money.ToMinorUnits(input.UnitPrice)
		lines = append(lines, money.LineItem{
			ProductName: name,
			Quantity:    input.Quantity,
			UnitPrice:   unitPrice,
			Taxable:     taxable,
		})
		items = append(items, domain.QuotationItem{
			ProductName: name,
			Quantity:    input.Quantity,
			UnitPrice:   unitPrice,
			Taxable:     taxable,
		})
	}

	return lines, items, nil
}

func (s *Service) resolveTaxRate(percent *float64, profile config.CompanyProfile) (int64, error) {
	if percent == nil {
		return profile.DefaultTaxRateUnits, nil
	}
	if *percent < 0 || *percent > 100 {
		return 0, domain.ErrInvalidTaxRate
	}
	return money.ToTaxRateUnits(*percent), nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
