package gateway

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/robby/pflow/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Record is a loosely-typed row as the record API returns it. Lookup fields
// may arrive either as a bare id or as a nested {"Id": ..., "Name": ...}
// object; numbers may arrive as strings. Decoders below absorb all of that so
// nothing past this package inspects record shape.
type Record map[string]any

// Table binds a record API table name to its typed decoder and encoder.
type Table[T any] struct {
	Name   string
	decode func(Record) T
	encode func(T) Record
	id     func(T) string
}

// Decode maps a raw record to T, defaulting every missing field.
func (t Table[T]) Decode(r Record) T { return t.decode(r) }

// Encode maps T back to a raw record.
func (t Table[T]) Encode(v T) Record { return t.encode(v) }

// ID returns the record id of v.
func (t Table[T]) ID(v T) string { return t.id(v) }

// Record API tables.
var (
	DealTable = Table[domain.Deal]{
		Name: "deal_c", decode: decodeDeal, encode: encodeDeal,
		id: func(d domain.Deal) string { return d.ID },
	}
	ContactTable = Table[domain.Contact]{
		Name: "contact_c", decode: decodeContact, encode: encodeContact,
		id: func(c domain.Contact) string { return c.ID },
	}
	CompanyTable = Table[domain.Company]{
		Name: "company_c", decode: decodeCompany, encode: encodeCompany,
		id: func(c domain.Company) string { return c.ID },
	}
	QuoteTable = Table[domain.Quote]{
		Name: "quotes_c", decode: decodeQuote, encode: encodeQuote,
		id: func(q domain.Quote) string { return q.ID },
	}
	SalesOrderTable = Table[domain.SalesOrder]{
		Name: "sales_order_c", decode: decodeSalesOrder, encode: encodeSalesOrder,
		id: func(o domain.SalesOrder) string { return o.ID },
	}
	ActivityTable = Table[domain.Activity]{
		Name: "activity_c", decode: decodeActivity, encode: encodeActivity,
		id: func(a domain.Activity) string { return a.ID },
	}
)

// dealKnownFields are decoded into typed Deal fields; everything else is
// carried in Deal.Extra.
var dealKnownFields = map[string]bool{
	"id": true, "Id": true,
	domain.FieldTitle: true, domain.FieldValue: true, domain.FieldStage: true,
	domain.FieldContactID: true, domain.FieldExpectedCloseDate: true,
	domain.FieldMovedToStageAt: true, domain.FieldCreatedAt: true,
}

func decodeDeal(r Record) domain.Deal {
	d := domain.Deal{
		ID:                r.id(),
		Title:             r.str(domain.FieldTitle),
		Value:             r.money(domain.FieldValue),
		ContactID:         r.lookup(domain.FieldContactID),
		ExpectedCloseDate: r.when(domain.FieldExpectedCloseDate),
		MovedToStageAt:    r.when(domain.FieldMovedToStageAt),
		CreatedAt:         r.when(domain.FieldCreatedAt),
	}
	if d.Title == "" {
		d.Title = r.str("Name")
	}
	if st, err := domain.ParseStage(r.str(domain.FieldStage)); err == nil {
		d.Stage = st
	}
	if d.MovedToStageAt.IsZero() {
		d.MovedToStageAt = d.CreatedAt
	}
	for k, v := range r {
		if dealKnownFields[k] {
			continue
		}
		if d.Extra == nil {
			d.Extra = make(map[string]any)
		}
		d.Extra[k] = v
	}
	return d
}

func encodeDeal(d domain.Deal) Record {
	r := Record{}
	for k, v := range d.Extra {
		r[k] = v
	}
	r["id"] = d.ID
	r[domain.FieldTitle] = d.Title
	r[domain.FieldValue] = d.Value.String()
	r[domain.FieldStage] = string(d.Stage)
	r[domain.FieldContactID] = d.ContactID
	r.putTime(domain.FieldExpectedCloseDate, d.ExpectedCloseDate)
	r.putTime(domain.FieldMovedToStageAt, d.MovedToStageAt)
	r.putTime(domain.FieldCreatedAt, d.CreatedAt)
	return r
}

func decodeContact(r Record) domain.Contact {
	return domain.Contact{
		ID:              r.id(),
		Name:            r.str("name", "Name"),
		Email:           r.str("email"),
		Phone:           r.str("phone"),
		Company:         r.str("company"),
		CompanyID:       r.lookup("companyId"),
		Tags:            r.tags("tags", "Tags"),
		Notes:           r.str("notes"),
		CreatedAt:       r.when("createdAt", "CreatedOn"),
		LastContactedAt: r.when("lastContactedAt"),
	}
}

func encodeContact(c domain.Contact) Record {
	r := Record{
		"id": c.ID, "name": c.Name, "email": c.Email, "phone": c.Phone,
		"company": c.Company, "companyId": c.CompanyID,
		"tags": strings.Join(c.Tags, ","), "notes": c.Notes,
	}
	r.putTime("createdAt", c.CreatedAt)
	r.putTime("lastContactedAt", c.LastContactedAt)
	return r
}

func decodeCompany(r Record) domain.Company {
	return domain.Company{
		ID:          r.id(),
		Name:        r.str("name", "Name"),
		Industry:    r.str("industry", "industry_c"),
		Phone:       r.str("phone", "phone_c"),
		Website:     r.str("website", "website_c"),
		Revenue:     r.money("revenue", "revenue_c"),
		Employees:   r.number("employees", "employees_c"),
		Address:     r.str("address", "address_c"),
		Description: r.str("description", "description_c"),
		Tags:        r.tags("tags", "Tags"),
		CreatedAt:   r.when("createdAt", "CreatedOn"),
	}
}

func encodeCompany(c domain.Company) Record {
	r := Record{
		"id": c.ID, "name": c.Name, "industry": c.Industry, "phone": c.Phone,
		"website": c.Website, "revenue": c.Revenue.String(), "employees": c.Employees,
		"address": c.Address, "description": c.Description, "tags": strings.Join(c.Tags, ","),
	}
	r.putTime("createdAt", c.CreatedAt)
	return r
}

func decodeQuote(r Record) domain.Quote {
	q := domain.Quote{
		ID:             r.id(),
		Name:           r.str("name", "Name"),
		Title:          r.str("title", "title_c"),
		CompanyID:      r.lookup("companyId", "companyId_c"),
		ContactID:      r.lookup("contactId", "contactId_c"),
		DealID:         r.lookup("dealId", "dealId_c"),
		QuoteDate:      r.when("quoteDate", "quoteDate_c"),
		Status:         r.str("status", "status_c"),
		DeliveryMethod: r.str("deliveryMethod", "deliveryMethod_c"),
		ExpiresOn:      r.when("expiresOn", "expiresOn_c"),
		Amount:         r.money("amount", "amount_c"),
		Description:    r.str("description", "description_c"),
	}
	if q.Status == "" {
		q.Status = domain.QuoteDraft
	}
	return q
}

func encodeQuote(q domain.Quote) Record {
	r := Record{
		"id": q.ID, "name": q.Name, "title": q.Title, "companyId": q.CompanyID,
		"contactId": q.ContactID, "dealId": q.DealID, "status": q.Status,
		"deliveryMethod": q.DeliveryMethod, "amount": q.Amount.String(),
		"description": q.Description,
	}
	r.putTime("quoteDate", q.QuoteDate)
	r.putTime("expiresOn", q.ExpiresOn)
	return r
}

func decodeSalesOrder(r Record) domain.SalesOrder {
	o := domain.SalesOrder{
		ID:            r.id(),
		Name:          r.str("name", "Name"),
		Title:         r.str("title", "title_c"),
		CompanyID:     r.lookup("companyId", "companyId_c"),
		ContactID:     r.lookup("contactId", "contactId_c"),
		DealID:        r.lookup("dealId", "dealId_c"),
		QuoteID:       r.lookup("quoteId", "quoteId_c"),
		OrderDate:     r.when("orderDate", "order_date_c"),
		Status:        r.str("status", "status_c"),
		PaymentMethod: r.str("paymentMethod", "payment_method_c"),
		TotalAmount:   r.money("totalAmount", "total_amount_c"),
	}
	if o.Status == "" {
		o.Status = domain.OrderDraft
	}
	return o
}

func encodeSalesOrder(o domain.SalesOrder) Record {
	r := Record{
		"id": o.ID, "name": o.Name, "title": o.Title, "companyId": o.CompanyID,
		"contactId": o.ContactID, "dealId": o.DealID, "quoteId": o.QuoteID,
		"status": o.Status, "paymentMethod": o.PaymentMethod,
		"totalAmount": o.TotalAmount.String(),
	}
	r.putTime("orderDate", o.OrderDate)
	return r
}

func decodeActivity(r Record) domain.Activity {
	a := domain.Activity{
		ID:          r.id(),
		Type:        strings.ToLower(r.str(domain.FieldActivityType)),
		ContactID:   r.lookup(domain.FieldContactID),
		DealID:      r.lookup(domain.FieldActivityDealID),
		Description: r.str(domain.FieldActivityDescription),
		Timestamp:   r.when(domain.FieldActivityTimestamp, "createdAt"),
	}
	if a.Type == "" {
		a.Type = domain.ActivityNote
	}
	return a
}

func encodeActivity(a domain.Activity) Record {
	r := Record{
		"id": a.ID, domain.FieldActivityType: a.Type, domain.FieldContactID: a.ContactID,
		domain.FieldActivityDealID: a.DealID, domain.FieldActivityDescription: a.Description,
	}
	r.putTime(domain.FieldActivityTimestamp, a.Timestamp)
	return r
}

// id returns the record id, accepting both "id" and "Id" spellings.
func (r Record) id() string {
	return r.lookup("id", "Id")
}

// first returns the first non-nil value among keys.
func (r Record) first(keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func (r Record) str(keys ...string) string {
	v := r.first(keys...)
	if v == nil {
		return ""
	}
	if m, ok := v.(map[string]any); ok {
		return cast.ToString(Record(m).first("Name", "name"))
	}
	return strings.TrimSpace(cast.ToString(v))
}

// lookup returns the referenced id of a lookup field.
func (r Record) lookup(keys ...string) string {
	v := r.first(keys...)
	switch x := v.(type) {
	case nil:
		return ""
	case map[string]any:
		return Record(x).id()
	case float64:
		return cast.ToString(int64(x))
	default:
		return cast.ToString(x)
	}
}

func (r Record) number(keys ...string) int {
	return cast.ToInt(r.first(keys...))
}

// money decodes a monetary amount; anything non-numeric becomes zero.
func (r Record) money(keys ...string) decimal.Decimal {
	return toDecimal(r.first(keys...))
}

func (r Record) when(keys ...string) time.Time {
	v := r.first(keys...)
	if v == nil {
		return time.Time{}
	}
	t, err := cast.ToTimeE(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r Record) tags(keys ...string) []string {
	v := r.first(keys...)
	var raw []string
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		raw = cast.ToStringSlice(x)
	default:
		raw = strings.Split(cast.ToString(x), ",")
	}
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (r Record) putTime(key string, t time.Time) {
	if t.IsZero() {
		return
	}
	r[key] = t.UTC().Format(time.RFC3339Nano)
}

func toDecimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero
		}
		return d
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(x)
	default:
		f, err := cast.ToFloat64E(x)
		if err != nil {
			return decimal.Zero
		}
		return decimal.NewFromFloat(f)
	}
}
