package document

import "github.com/docsubmit/docsubmit/internal/core"

// Example returns the sample goods introduction document used by the
// example command and by submit --example.
func Example() *core.Document {
	date := core.NewDate(2020, 1, 23)
	return &core.Document{
		Description:    core.Description{ParticipantInn: "string"},
		DocID:          "string",
		DocStatus:      "string",
		DocType:        core.DocTypeIntroduceGoods,
		ImportRequest:  true,
		OwnerInn:       "string",
		ParticipantInn: "string",
		ProducerInn:    "string",
		ProductionDate: date,
		ProductionType: "string",
		Products: []core.Product{
			{
				CertificateDocument:       "string",
				CertificateDocumentDate:   date,
				CertificateDocumentNumber: "string",
				OwnerInn:                  "string",
				ProducerInn:               "string",
				ProductionDate:            date,
				TnvedCode:                 "string",
				UitCode:                   "string",
				UituCode:                  "string",
			},
		},
		RegDate:   date,
		RegNumber: "string",
	}
}
