package formurl

// Choices offered to the operator for each required selection. The external
// form accepts these values verbatim.
var (
	Brands = []string{
		"TELUS",
		"Koodo",
		"Public Mobile",
		"Subscription",
		"SHS Residential",
		"Custom Home",
		"Mascon By TELUS",
		"PC Mobile",
		"Commercial Security",
		"SMB Security",
	}

	Products = []string{
		"Postpaid",
		"Prepaid",
		"EPP",
		"Pure Fibre in CSR",
		"Copper in Compass",
		"Copper in CSR",
		"Offnet",
		"SmartHub",
		"Apple TV",
		"Discovery+",
		"Corp",
		"MMB",
		"SmartEnergy",
		"Telus Online Security (TOS)",
		"Xbox Game Pass Ultimate (XGPU)",
	}

	LOBs = []string{"Wireless", "Wireline"}

	CustomerTypes = []string{"Consumer", "EPP", "Business"}

	Languages = []string{"EN", "FR"}
)

// MaxAccountIDLen is the longest BAN/CID the form accepts.
const MaxAccountIDLen = 9
