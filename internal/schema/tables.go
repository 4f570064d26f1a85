package schema

import (
	"github.com/canopycrm/importer/internal/domain"
)

// Static per-entity descriptors. Alias lists carry the header variants
// seen in the wild; matching is exact against the normalized form, no
// fuzzy matching.
var registry = map[domain.EntityType]EntitySchema{
	domain.EntityContacts:  contactsSchema,
	domain.EntityCompanies: companiesSchema,
	domain.EntityLicenses:  licensesSchema,
}

var contactsSchema = EntitySchema{
	EntityType: domain.EntityContacts,
	Table:      "contacts",
	Fields: []Field{
		{
			Canonical:      "Contact Unique ID",
			Column:         "contact_unique_id",
			Aliases:        []string{"contact unique id", "unique id", "contact_id", "contact id"},
			RequiredHeader: true,
		},
		{
			Canonical: "Contact Full Name",
			Column:    "full_name",
			Aliases:   []string{"contact full name", "full name", "name", "full_name"},
		},
		{
			Canonical:      "Contact First Name",
			Column:         "first_name",
			Aliases:        []string{"contact first name", "first name", "first_name", "firstname"},
			Required:       true,
			RequiredHeader: true,
		},
		{
			Canonical:      "Contact Last Name",
			Column:         "last_name",
			Aliases:        []string{"contact last name", "last name", "last_name", "lastname"},
			Required:       true,
			RequiredHeader: true,
		},
		{
			Canonical: "Contact Job Category",
			Column:    "job_category",
			Aliases:   []string{"job category", "contact job category", "job_category", "category"},
		},
		{
			Canonical: "Contact Email",
			Column:    "email",
			Kind:      KindEmail,
			Aliases:   []string{"email", "contact email", "email_address", "e-mail"},
		},
		{
			Canonical: "Contact Phone Number",
			Column:    "phone_number",
			Kind:      KindPhone,
			Aliases:   []string{"phone", "phone number", "contact phone number", "phone_number", "telephone"},
		},
		{
			Canonical: "Contact Linkedin URL",
			Column:    "linkedin_url",
			Kind:      KindURL,
			Aliases:   []string{"linkedin", "linkedin url", "contact linkedin url", "linkedin_url", "linkedin profile"},
		},
		{
			Canonical: "License Number",
			Column:    "license_number",
			Aliases:   []string{"license number", "license #", "license", "license_number"},
		},
		{
			Canonical: "Contact Last Updated Date",
			Column:    "contact_last_updated",
			Kind:      KindDate,
			Aliases:   []string{"last updated", "contact last updated date", "updated_date", "last_updated", "updated date"},
		},
	},
	UniqueIDColumn: "contact_unique_id",
	Surrogate: &SurrogateKey{
		Prefix: "CNT-",
		Parts:  []string{"first_name", "last_name", "license_number"},
	},
	LookupKeys: [][]string{
		{"contact_unique_id"},
		{"first_name", "last_name", "license_number"},
	},
}

var companiesSchema = EntitySchema{
	EntityType: domain.EntityCompanies,
	Table:      "companies",
	Fields: []Field{
		{
			Canonical:      "Company Name",
			Column:         "name",
			Aliases:        []string{"company name", "name", "company", "company_name"},
			Required:       true,
			RequiredHeader: true,
		},
		{
			Canonical: "Company DBA",
			Column:    "dba",
			Aliases:   []string{"dba", "company dba", "doing business as"},
		},
		{
			Canonical: "Company Website URL",
			Column:    "website_url",
			Kind:      KindURL,
			Aliases:   []string{"website", "website url", "company website url", "website_url"},
		},
		{
			Canonical: "Company Linkedin URL",
			Column:    "linkedin_url",
			Kind:      KindURL,
			Aliases:   []string{"linkedin", "linkedin url", "company linkedin url", "linkedin_url"},
		},
		{
			Canonical: "Open for Business?",
			Column:    "open_for_business",
			Kind:      KindBool,
			Aliases:   []string{"open for business", "open for business?", "open_for_business"},
		},
		{
			Canonical: "License Number",
			Column:    "license_number",
			Aliases:   []string{"license number", "license #", "license", "license_number"},
		},
		{
			Canonical: "Company Last Updated Date",
			Column:    "company_last_updated",
			Kind:      KindDate,
			Aliases:   []string{"last updated", "company last updated date", "updated_date", "last_updated"},
		},
	},
	LookupKeys: [][]string{
		{"name", "license_number"},
		{"name"},
	},
}

var licensesSchema = EntitySchema{
	EntityType: domain.EntityLicenses,
	Table:      "licenses",
	Fields: []Field{
		{
			Canonical:      "License Number",
			Column:         "license_number",
			Aliases:        []string{"license number", "license #", "license", "license_number"},
			Required:       true,
			RequiredHeader: true,
		},
		{
			Canonical: "License Type",
			Column:    "license_type",
			Aliases:   []string{"license type", "type", "license_type"},
		},
		{
			Canonical: "License Market",
			Column:    "license_market",
			Aliases:   []string{"license market", "market", "license_market"},
		},
		{
			Canonical: "License Category",
			Column:    "license_category",
			Aliases:   []string{"license category", "category", "license_category"},
		},
		{
			Canonical: "License Full Address",
			Column:    "full_address",
			Aliases:   []string{"full address", "address", "license full address", "full_address"},
		},
		{
			Canonical: "License State",
			Column:    "state",
			Kind:      KindState,
			Aliases:   []string{"state", "license state"},
		},
		{
			Canonical: "License Country",
			Column:    "country",
			Aliases:   []string{"country", "license country"},
		},
		{
			Canonical: "License Issue Date",
			Column:    "issue_date",
			Kind:      KindDate,
			Aliases:   []string{"issue date", "issued", "license issue date", "issue_date"},
		},
		{
			Canonical: "License Expiration Date",
			Column:    "expiration_date",
			Kind:      KindDate,
			Aliases:   []string{"expiration date", "expires", "license expiration date", "expiration_date"},
		},
		{
			Canonical: "License Issued By",
			Column:    "issued_by",
			Aliases:   []string{"issued by", "license issued by", "issued_by"},
		},
		{
			Canonical: "License Issued By Website",
			Column:    "issued_by_website",
			Kind:      KindURL,
			Aliases:   []string{"issued by website", "license issued by website", "issued_by_website"},
		},
		{
			Canonical: "License Last Updated Date",
			Column:    "last_updated",
			Kind:      KindDate,
			Aliases:   []string{"last updated", "license last updated date", "last_updated", "updated_date"},
		},
	},
	LookupKeys: [][]string{
		{"license_number"},
	},
}
