package tui

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/robby/pflow/internal/domain"
)

// validate reports failures under the `form` tag name, which is also the
// record field the value is sent as.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}()

// checkInput validates in and maps every failure to messages["field.tag"],
// falling back to messages["field"].
func checkInput(in any, messages map[string]string) map[string]string {
	errs := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(validate.Struct(in), &verrs) {
		return errs
	}
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = messages[fe.Field()]
		}
		if _, seen := errs[fe.Field()]; !seen {
			errs[fe.Field()] = msg
		}
	}
	return errs
}

// cleanAmount strips currency formatting typed into a money input.
func cleanAmount(s string) string {
	return strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
}

// amountOrZero parses an already validated amount; empty means zero.
func amountOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(cleanAmount(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// splitTags normalizes a comma separated tag list.
func splitTags(s string) string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return strings.Join(tags, ",")
}

func trimAll(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = strings.TrimSpace(v)
	}
	return out
}

func dateValue(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

type contactInput struct {
	Name    string `form:"name" validate:"required"`
	Email   string `form:"email" validate:"required,email"`
	Company string `form:"company" validate:"required"`
}

func validateContact(values map[string]string) (domain.Fields, map[string]string) {
	v := trimAll(values)
	errs := checkInput(contactInput{Name: v["name"], Email: v["email"], Company: v["company"]}, map[string]string{
		"name":           "Name is required",
		"email.required": "Email is required",
		"email":          "Please enter a valid email",
		"company":        "Company is required",
	})
	if len(errs) > 0 {
		return nil, errs
	}
	return domain.Fields{
		"name":    v["name"],
		"email":   v["email"],
		"phone":   v["phone"],
		"company": v["company"],
		"tags":    splitTags(v["tags"]),
		"notes":   v["notes"],
	}, nil
}

// ContactForm creates and edits contacts.
func ContactForm() RecordForm[domain.Contact] {
	return RecordForm[domain.Contact]{
		Noun: "Contact",
		Inputs: []formInput{
			{Key: "name", Label: "Name", Placeholder: "Ada Lovelace"},
			{Key: "email", Label: "Email", Placeholder: "ada@example.com"},
			{Key: "phone", Label: "Phone", Placeholder: "+1 555 0100", Limit: 40},
			{Key: "company", Label: "Company", Placeholder: "Analytical Engines Ltd"},
			{Key: "tags", Label: "Tags", Placeholder: "vip, renewal"},
			{Key: "notes", Label: "Notes", Limit: 1000},
		},
		Values: func(c domain.Contact) map[string]string {
			return map[string]string{
				"name": c.Name, "email": c.Email, "phone": c.Phone, "company": c.Company,
				"tags": strings.Join(c.Tags, ", "), "notes": c.Notes,
			}
		},
		Validate: validateContact,
	}
}

type companyInput struct {
	Name      string `form:"name" validate:"required"`
	Revenue   string `form:"revenue" validate:"omitempty,numeric"`
	Employees string `form:"employees" validate:"omitempty,number"`
	Website   string `form:"website" validate:"omitempty,url"`
}

func validateCompany(values map[string]string) (domain.Fields, map[string]string) {
	v := trimAll(values)
	website := v["website"]
	if website != "" && !strings.Contains(website, "://") {
		website = "https://" + website
	}
	in := companyInput{Name: v["name"], Revenue: cleanAmount(v["revenue"]), Employees: v["employees"], Website: website}
	errs := checkInput(in, map[string]string{
		"name":      "Company name is required",
		"revenue":   "Revenue must be a valid number",
		"employees": "Employees must be a valid number",
		"website":   "Website must be a valid address",
	})
	if len(errs) > 0 {
		return nil, errs
	}

	employees := 0
	if in.Employees != "" {
		employees = int(amountOrZero(in.Employees).IntPart())
	}
	return domain.Fields{
		"name":        in.Name,
		"industry":    v["industry"],
		"phone":       v["phone"],
		"website":     website,
		"revenue":     amountOrZero(in.Revenue).String(),
		"employees":   employees,
		"address":     v["address"],
		"description": v["description"],
		"tags":        splitTags(v["tags"]),
	}, nil
}

// CompanyForm creates and edits companies.
func CompanyForm() RecordForm[domain.Company] {
	return RecordForm[domain.Company]{
		Noun: "Company",
		Inputs: []formInput{
			{Key: "name", Label: "Name", Placeholder: "Acme Corp"},
			{Key: "industry", Label: "Industry", Placeholder: "Manufacturing"},
			{Key: "phone", Label: "Phone", Limit: 40},
			{Key: "website", Label: "Website", Placeholder: "acme.example"},
			{Key: "revenue", Label: "Revenue ($)", Placeholder: "2500000", Limit: 20},
			{Key: "employees", Label: "Employees", Placeholder: "120", Limit: 9},
			{Key: "address", Label: "Address"},
			{Key: "tags", Label: "Tags"},
			{Key: "description", Label: "Description", Limit: 1000},
		},
		Values: func(c domain.Company) map[string]string {
			employees := ""
			if c.Employees > 0 {
				employees = strconv.Itoa(c.Employees)
			}
			revenue := ""
			if !c.Revenue.IsZero() {
				revenue = c.Revenue.String()
			}
			return map[string]string{
				"name": c.Name, "industry": c.Industry, "phone": c.Phone, "website": c.Website,
				"revenue": revenue, "employees": employees, "address": c.Address,
				"tags": strings.Join(c.Tags, ", "), "description": c.Description,
			}
		},
		Validate: validateCompany,
	}
}

type quoteInput struct {
	Name      string `form:"name" validate:"required"`
	Title     string `form:"title" validate:"required"`
	QuoteDate string `form:"quoteDate" validate:"omitempty,datetime=2006-01-02"`
	ExpiresOn string `form:"expiresOn" validate:"omitempty,datetime=2006-01-02"`
	Amount    string `form:"amount" validate:"omitempty,numeric"`
}

func validateQuote(values map[string]string) (domain.Fields, map[string]string) {
	v := trimAll(values)
	in := quoteInput{Name: v["name"], Title: v["title"], QuoteDate: v["quoteDate"], ExpiresOn: v["expiresOn"], Amount: cleanAmount(v["amount"])}
	errs := checkInput(in, map[string]string{
		"name":      "Quote name is required",
		"title":     "Quote title is required",
		"quoteDate": "Use YYYY-MM-DD",
		"expiresOn": "Use YYYY-MM-DD",
		"amount":    "Amount must be a number",
	})
	if len(errs) > 0 {
		return nil, errs
	}
	return domain.Fields{
		"name":           in.Name,
		"title":          in.Title,
		"companyId":      v["companyId"],
		"contactId":      v["contactId"],
		"dealId":         v["dealId"],
		"quoteDate":      in.QuoteDate,
		"status":         v["status"],
		"deliveryMethod": v["deliveryMethod"],
		"expiresOn":      in.ExpiresOn,
		"amount":         amountOrZero(in.Amount).String(),
		"description":    v["description"],
	}, nil
}

// QuoteForm creates and edits quotes.
func QuoteForm() RecordForm[domain.Quote] {
	return RecordForm[domain.Quote]{
		Noun: "Quote",
		Inputs: []formInput{
			{Key: "name", Label: "Quote", Placeholder: "Q-1001", Limit: 40},
			{Key: "title", Label: "Title", Placeholder: "Annual licences"},
			{Key: "companyId", Label: "Company", Lookup: lookupCompany},
			{Key: "contactId", Label: "Contact", Lookup: lookupContact},
			{Key: "dealId", Label: "Deal", Lookup: lookupDeal},
			{Key: "quoteDate", Label: "Quote date", Placeholder: "YYYY-MM-DD", Limit: 10},
			{Key: "expiresOn", Label: "Expires on", Placeholder: "YYYY-MM-DD", Limit: 10},
			{Key: "status", Label: "Status", Choices: domain.QuoteStatuses()},
			{Key: "deliveryMethod", Label: "Delivery", Choices: domain.DeliveryMethods()},
			{Key: "amount", Label: "Amount ($)", Placeholder: "12500", Limit: 20},
			{Key: "description", Label: "Description", Limit: 1000},
		},
		Values: func(q domain.Quote) map[string]string {
			return map[string]string{
				"name": q.Name, "title": q.Title, "companyId": q.CompanyID, "contactId": q.ContactID,
				"dealId": q.DealID, "quoteDate": dateValue(q.QuoteDate), "expiresOn": dateValue(q.ExpiresOn),
				"status": q.Status, "deliveryMethod": q.DeliveryMethod, "amount": q.Amount.String(),
				"description": q.Description,
			}
		},
		Defaults: func(now time.Time) map[string]string {
			return map[string]string{
				"quoteDate": now.Format(dateLayout),
				"expiresOn": now.AddDate(0, 0, 30).Format(dateLayout),
				"status":    domain.QuoteDraft,
			}
		},
		Validate: validateQuote,
	}
}

type orderInput struct {
	Name        string `form:"name" validate:"required"`
	Title       string `form:"title" validate:"required"`
	OrderDate   string `form:"orderDate" validate:"required,datetime=2006-01-02"`
	TotalAmount string `form:"totalAmount" validate:"required,numeric"`
}

func validateOrder(values map[string]string) (domain.Fields, map[string]string) {
	v := trimAll(values)
	in := orderInput{Name: v["name"], Title: v["title"], OrderDate: v["orderDate"], TotalAmount: cleanAmount(v["totalAmount"])}
	errs := checkInput(in, map[string]string{
		"name":                 "Sales order name is required",
		"title":                "Title is required",
		"orderDate.required":   "Order date is required",
		"orderDate":            "Use YYYY-MM-DD",
		"totalAmount.required": "Total amount is required",
		"totalAmount":          "Total amount must be a number",
	})
	if _, bad := errs["totalAmount"]; !bad && !amountOrZero(in.TotalAmount).IsPositive() {
		errs["totalAmount"] = "Total amount must be greater than 0"
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return domain.Fields{
		"name":          in.Name,
		"title":         in.Title,
		"orderDate":     in.OrderDate,
		"status":        v["status"],
		"paymentMethod": v["paymentMethod"],
		"totalAmount":   amountOrZero(in.TotalAmount).String(),
		"contactId":     v["contactId"],
		"companyId":     v["companyId"],
		"dealId":        v["dealId"],
		"quoteId":       v["quoteId"],
	}, nil
}

// OrderForm creates and edits sales orders.
func OrderForm() RecordForm[domain.SalesOrder] {
	return RecordForm[domain.SalesOrder]{
		Noun: "Sales Order",
		Inputs: []formInput{
			{Key: "name", Label: "Order", Placeholder: "SO-2001", Limit: 40},
			{Key: "title", Label: "Title", Placeholder: "Hardware shipment"},
			{Key: "orderDate", Label: "Order date", Placeholder: "YYYY-MM-DD", Limit: 10},
			{Key: "status", Label: "Status", Choices: domain.OrderStatuses()},
			{Key: "paymentMethod", Label: "Payment", Choices: domain.PaymentMethods()},
			{Key: "totalAmount", Label: "Total ($)", Placeholder: "4800", Limit: 20},
			{Key: "contactId", Label: "Contact", Lookup: lookupContact},
			{Key: "companyId", Label: "Company", Lookup: lookupCompany},
			{Key: "dealId", Label: "Deal", Lookup: lookupDeal},
			{Key: "quoteId", Label: "Quote", Lookup: lookupQuote},
		},
		Values: func(o domain.SalesOrder) map[string]string {
			return map[string]string{
				"name": o.Name, "title": o.Title, "orderDate": dateValue(o.OrderDate),
				"status": o.Status, "paymentMethod": o.PaymentMethod, "totalAmount": o.TotalAmount.String(),
				"contactId": o.ContactID, "companyId": o.CompanyID, "dealId": o.DealID, "quoteId": o.QuoteID,
			}
		},
		Defaults: func(now time.Time) map[string]string {
			return map[string]string{
				"orderDate": now.Format(dateLayout),
				"status":    domain.OrderDraft,
			}
		},
		Validate: validateOrder,
	}
}
