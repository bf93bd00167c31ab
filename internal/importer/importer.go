package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/logging"
	"go.uber.org/zap"
)

// Header lists the columns of a catalog export, one price per row.
var Header = []string{
	"organization", "product", "product_name", "price_type", "amount_type", "amount", "currency",
	"minimum", "maximum", "preset", "interval", "stripe_product", "stripe_price",
}

type OrganizationStore interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Organization, error)
	Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error)
}

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type PriceWriter interface {
	ListByProduct(ctx context.Context, productID string) ([]domain.Price, error)
	Create(ctx context.Context, price domain.Price) (*domain.Price, error)
}

// Summary counts what a run changed.
type Summary struct {
	Organizations int
	Products      int
	Prices        int
	Unchanged     int
}

// CSVImporter loads organizations, products and prices from a catalog CSV.
// Rerunning the same file is a no-op: prices with identical terms are kept.
type CSVImporter struct {
	reader   *csv.Reader
	orgs     OrganizationStore
	products ProductWriter
	prices   PriceWriter
	logger   *zap.Logger

	orgIDs     map[string]string
	productIDs map[string]string
}

func NewCSVImporter(r io.Reader, orgs OrganizationStore, products ProductWriter, prices PriceWriter, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:     csvr,
		orgs:       orgs,
		products:   products,
		prices:     prices,
		logger:     logging.OrNop(logger).Named("importer"),
		orgIDs:     map[string]string{},
		productIDs: map[string]string{},
	}
}

type csvRow struct {
	line          int
	organization  string
	productKey    string
	productName   string
	stripeProduct string
	price         domain.Price
}

// Run parses every row and writes the catalog. It stops at the first invalid
// row; rows before it stay written.
func (i *CSVImporter) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	headers, err := i.reader.Read()
	if err != nil {
		return sum, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, required := range []string{"organization", "product", "price_type", "amount_type"} {
		if _, ok := index[required]; !ok {
			return sum, fmt.Errorf("missing column %q", required)
		}
	}

	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return sum, fmt.Errorf("line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		row, err := parseRow(record, index, line)
		if err != nil {
			return sum, err
		}
		if err := i.save(ctx, row, &sum); err != nil {
			return sum, fmt.Errorf("line %d: %w", row.line, err)
		}
	}

	i.logger.Info("catalog imported",
		zap.Int("organizations", sum.Organizations),
		zap.Int("products", sum.Products),
		zap.Int("prices", sum.Prices),
		zap.Int("unchanged", sum.Unchanged),
	)
	return sum, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow, sum *Summary) error {
	orgID, err := i.organization(ctx, row.organization, sum)
	if err != nil {
		return err
	}

	productKey := orgID + "/" + row.productKey
	productID, ok := i.productIDs[productKey]
	if !ok {
		p, err := i.products.Upsert(ctx, domain.Product{
			OrganizationID:     orgID,
			Key:                row.productKey,
			Name:               row.productName,
			ProcessorProductID: row.stripeProduct,
		})
		if err != nil {
			return fmt.Errorf("upsert product %q: %w", row.productKey, err)
		}
		productID = p.ID
		i.productIDs[productKey] = productID
		sum.Products++
	}

	existing, err := i.prices.ListByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("list prices of %q: %w", row.productKey, err)
	}
	for _, p := range existing {
		if sameTerms(p, row.price) {
			sum.Unchanged++
			return nil
		}
	}

	price := row.price
	price.ProductID = productID
	if _, err := i.prices.Create(ctx, price); err != nil {
		return fmt.Errorf("create price for %q: %w", row.productKey, err)
	}
	sum.Prices++
	return nil
}

func (i *CSVImporter) organization(ctx context.Context, slug string, sum *Summary) (string, error) {
	if id, ok := i.orgIDs[slug]; ok {
		return id, nil
	}
	org, err := i.orgs.GetBySlug(ctx, slug)
	if errors.Is(err, domain.ErrNotFound) {
		org, err = i.orgs.Create(ctx, &domain.Organization{Slug: slug, Name: slug})
		if err == nil {
			sum.Organizations++
		}
	}
	if err != nil {
		return "", fmt.Errorf("ensure organization %q: %w", slug, err)
	}
	i.orgIDs[slug] = org.ID
	return org.ID, nil
}

func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	row := &csvRow{
		line:          line,
		organization:  pick(record, index, "organization"),
		productKey:    pick(record, index, "product"),
		productName:   pick(record, index, "product_name"),
		stripeProduct: pick(record, index, "stripe_product"),
	}
	if row.organization == "" || row.productKey == "" {
		return nil, fmt.Errorf("line %d: organization and product are required", line)
	}
	if row.productName == "" {
		row.productName = row.productKey
	}

	p := domain.Price{
		Type:              domain.PriceType(strings.ToLower(pick(record, index, "price_type"))),
		AmountType:        domain.AmountType(strings.ToLower(pick(record, index, "amount_type"))),
		RecurringInterval: strings.ToLower(pick(record, index, "interval")),
		ProcessorPriceID:  pick(record, index, "stripe_price"),
	}

	switch p.Type {
	case domain.PriceTypeOneTime:
		if p.RecurringInterval != "" {
			return nil, fmt.Errorf("line %d: one_time price cannot have an interval", line)
		}
	case domain.PriceTypeRecurring:
		if p.RecurringInterval != "month" && p.RecurringInterval != "year" {
			return nil, fmt.Errorf("line %d: recurring price needs interval month or year", line)
		}
	default:
		return nil, fmt.Errorf("line %d: unknown price_type %q", line, p.Type)
	}

	var err error
	amounts := map[string]**int64{
		"amount":  &p.Amount,
		"minimum": &p.MinimumAmount,
		"maximum": &p.MaximumAmount,
		"preset":  &p.PresetAmount,
	}
	for column, dst := range amounts {
		if *dst, err = parseAmount(pick(record, index, column)); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, column, err)
		}
	}
	if currency := strings.ToLower(pick(record, index, "currency")); currency != "" {
		p.Currency = &currency
	}

	if err := validateTerms(p); err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	row.price = p
	return row, nil
}

func validateTerms(p domain.Price) error {
	switch p.AmountType {
	case domain.AmountTypeFixed:
		if p.Amount == nil || p.Currency == nil {
			return errors.New("fixed price needs amount and currency")
		}
		if p.MinimumAmount != nil || p.MaximumAmount != nil || p.PresetAmount != nil {
			return errors.New("fixed price cannot have minimum, maximum or preset")
		}
	case domain.AmountTypeCustom:
		if p.Currency == nil {
			return errors.New("custom price needs a currency")
		}
		if p.Amount != nil {
			return errors.New("custom price cannot have a fixed amount")
		}
		if p.MinimumAmount != nil && p.MaximumAmount != nil && *p.MinimumAmount > *p.MaximumAmount {
			return errors.New("minimum exceeds maximum")
		}
		if p.PresetAmount != nil && !p.AmountAllowed(*p.PresetAmount) {
			return errors.New("preset outside minimum and maximum")
		}
	case domain.AmountTypeFree:
		if p.Amount != nil || p.Currency != nil || p.MinimumAmount != nil || p.MaximumAmount != nil || p.PresetAmount != nil {
			return errors.New("free price cannot have amounts or currency")
		}
	default:
		return fmt.Errorf("unknown amount_type %q", p.AmountType)
	}
	return nil
}

// sameTerms reports whether two prices bill the same way.
func sameTerms(a, b domain.Price) bool {
	return a.Type == b.Type &&
		a.AmountType == b.AmountType &&
		a.RecurringInterval == b.RecurringInterval &&
		!a.IsArchived &&
		eqInt(a.Amount, b.Amount) &&
		eqInt(a.MinimumAmount, b.MinimumAmount) &&
		eqInt(a.MaximumAmount, b.MaximumAmount) &&
		eqInt(a.PresetAmount, b.PresetAmount) &&
		eqString(a.Currency, b.Currency)
}

func parseAmount(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("not an integer amount: %q", s)
	}
	if v < 0 {
		return nil, fmt.Errorf("negative amount %d", v)
	}
	return &v, nil
}

func eqInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return strings.EqualFold(*a, *b)
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
