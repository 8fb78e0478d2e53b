package ai

// Categories is the closed tag set tenders are classified into. The
// classifier prompt names these exactly and anything outside the list is
// discarded.
var Categories = []string{
	"Software Development",
	"Systems Integration",
	"Infrastructure & Civil Works",
	"Telecommunications",
	"Cybersecurity",
	"Data & Analytics",
	"Cloud & Hosting",
	"Consulting & Advisory",
	"Maintenance & Support",
	"Hardware & Equipment",
	"Training & Education",
	"Health Services",
}

// PurchaserTypes mirrors the purchaser tier ids used by the economics
// policy, plus categories the tier table treats as neutral.
var PurchaserTypes = []string{
	"government",
	"financial",
	"enterprise",
	"ngo",
	"education",
	"other",
}
