package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/robby/pflow/internal/domain"
)

type seedContact struct {
	name, email, phone, company string
	tags                        string
}

type seedDeal struct {
	title   string
	value   int
	stage   domain.Stage
	contact int // index into seedContacts
	closeIn int // days from now
	inStage int // days since the last stage move
}

var seedCompanies = []domain.Fields{
	{"name": "Acme Corp", "industry": "Manufacturing", "website": "https://acme.example.com", "revenue": "12500000", "employees": 420},
	{"name": "Globex", "industry": "Energy", "website": "https://globex.example.com", "revenue": "56000000", "employees": 1800},
	{"name": "Initech", "industry": "Software", "website": "https://initech.example.com", "revenue": "3200000", "employees": 95},
}

var seedContacts = []seedContact{
	{"Ada Lovelace", "ada@acme.example.com", "555-0101", "Acme Corp", "vip,engineering"},
	{"Grace Hopper", "grace@globex.example.com", "555-0102", "Globex", "navy"},
	{"Alan Turing", "alan@initech.example.com", "555-0103", "Initech", ""},
	{"Margaret Hamilton", "margaret@acme.example.com", "555-0104", "Acme Corp", "apollo"},
}

var seedDeals = []seedDeal{
	{"Acme plant retrofit", 48000, domain.StageLead, 0, 60, 3},
	{"Globex grid sensors", 125000, domain.StageQualified, 1, 45, 12},
	{"Initech license renewal", 18000, domain.StageProposal, 2, 14, 41},
	{"Acme support contract", 22000, domain.StageClosedWon, 3, -5, 5},
	{"Globex pilot", 9500, domain.StageClosedLost, 1, -20, 20},
	{"Initech expansion", 64000, domain.StageLead, 2, 90, 35},
}

// Seed populates an empty gateway with a small, self-consistent sample CRM.
func Seed(ctx context.Context, gw *Gateway, now time.Time) error {
	var companyIDs []string
	for _, f := range seedCompanies {
		c, err := gw.Companies.Create(ctx, f)
		if err != nil {
			return fmt.Errorf("failed to seed company: %w", err)
		}
		companyIDs = append(companyIDs, c.ID)
	}

	var contactIDs []string
	for i, sc := range seedContacts {
		c, err := gw.Contacts.Create(ctx, domain.Fields{
			"name": sc.name, "email": sc.email, "phone": sc.phone,
			"company": sc.company, "companyId": companyIDs[i%len(companyIDs)],
			"tags": sc.tags,
			"createdAt": now.AddDate(0, 0, -3*i).UTC().Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("failed to seed contact: %w", err)
		}
		contactIDs = append(contactIDs, c.ID)
	}

	var dealIDs []string
	for _, sd := range seedDeals {
		d, err := gw.Deals.Create(ctx, domain.Fields{
			domain.FieldTitle:             sd.title,
			domain.FieldValue:             sd.value,
			domain.FieldStage:             string(sd.stage),
			domain.FieldContactID:         contactIDs[sd.contact],
			domain.FieldExpectedCloseDate: now.AddDate(0, 0, sd.closeIn).Format("2006-01-02"),
			domain.FieldMovedToStageAt:    now.AddDate(0, 0, -sd.inStage).UTC().Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("failed to seed deal: %w", err)
		}
		dealIDs = append(dealIDs, d.ID)
	}

	activities := []domain.Fields{
		{domain.FieldActivityType: domain.ActivityCall, domain.FieldContactID: contactIDs[0], domain.FieldActivityDealID: dealIDs[0], domain.FieldActivityDescription: "Intro call, wants a site visit"},
		{domain.FieldActivityType: domain.ActivityEmail, domain.FieldContactID: contactIDs[1], domain.FieldActivityDealID: dealIDs[1], domain.FieldActivityDescription: "Sent sensor spec sheet"},
		{domain.FieldActivityType: domain.ActivityMeeting, domain.FieldContactID: contactIDs[2], domain.FieldActivityDealID: dealIDs[2], domain.FieldActivityDescription: "Pricing review with procurement"},
		{domain.FieldActivityType: domain.ActivityNote, domain.FieldContactID: contactIDs[3], domain.FieldActivityDealID: dealIDs[3], domain.FieldActivityDescription: "Signed, kickoff next week"},
	}
	for i, f := range activities {
		f[domain.FieldActivityTimestamp] = now.Add(-time.Duration(i+1) * 26 * time.Hour).UTC().Format(time.RFC3339)
		if _, err := gw.Activities.Create(ctx, f); err != nil {
			return fmt.Errorf("failed to seed activity: %w", err)
		}
	}

	q, err := gw.Quotes.Create(ctx, domain.Fields{
		"name": "Q-1001", "title": "Initech license renewal", "companyId": companyIDs[2],
		"contactId": contactIDs[2], "dealId": dealIDs[2], "status": domain.QuoteSent,
		"deliveryMethod": "Email", "amount": "18000",
		"quoteDate": now.AddDate(0, 0, -7).Format("2006-01-02"),
		"expiresOn": now.AddDate(0, 0, 23).Format("2006-01-02"),
	})
	if err != nil {
		return fmt.Errorf("failed to seed quote: %w", err)
	}

	_, err = gw.SalesOrders.Create(ctx, domain.Fields{
		"name": "SO-2001", "title": "Acme support contract", "companyId": companyIDs[0],
		"contactId": contactIDs[3], "dealId": dealIDs[3], "quoteId": q.ID,
		"status": domain.OrderConfirmed, "paymentMethod": "Invoice", "totalAmount": "22000",
		"orderDate": now.AddDate(0, 0, -2).Format("2006-01-02"),
	})
	if err != nil {
		return fmt.Errorf("failed to seed sales order: %w", err)
	}
	return nil
}
