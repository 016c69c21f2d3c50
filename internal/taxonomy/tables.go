package taxonomy

var defaultCategories = []Category{
	{Name: "Hormone Therapy", Synonyms: []string{
		"testosterone replacement therapy", "testosterone therapy", "testosterone", "trt",
		"low t", "low testosterone", "hormone replacement", "hrt", "bioidentical hormones",
		"bioidentical", "hormone optimization", "hormone therapy",
	}},
	{Name: "Erectile Dysfunction Treatment", Synonyms: []string{
		"erectile dysfunction", "ed treatment", "ed therapy", "ed clinic", "gainswave",
		"shockwave therapy", "acoustic wave therapy", "acoustic wave", "shockwave",
	}},
	{Name: "Weight Loss", Synonyms: []string{
		"medical weight loss", "weight loss", "weight management", "semaglutide",
		"tirzepatide", "glp-1", "ozempic", "wegovy",
	}},
	{Name: "Peptide Therapy", Synonyms: []string{
		"peptide therapy", "peptides", "peptide", "bpc-157", "sermorelin",
	}},
	{Name: "IV Therapy", Synonyms: []string{
		"iv therapy", "iv hydration", "iv drip", "iv infusion", "nad+", "hydration therapy",
	}},
	{Name: "Hair Restoration", Synonyms: []string{
		"hair restoration", "hair loss", "hair transplant", "hair regrowth",
	}},
	{Name: "PRP Therapy", Synonyms: []string{
		"prp therapy", "prp", "p-shot", "platelet rich plasma", "platelet-rich plasma",
	}},
	{Name: "Sexual Wellness", Synonyms: []string{
		"sexual wellness", "sexual health", "libido", "premature ejaculation", "peyronie's",
	}},
	{Name: "Vitamin Injections", Synonyms: []string{
		"vitamin injections", "b12 injections", "b12 shots", "b12", "lipo injections",
		"vitamin shots",
	}},
	{Name: "Anti-Aging", Synonyms: []string{
		"anti-aging", "anti aging", "longevity", "age management",
	}},
	{Name: "Primary Care", Synonyms: []string{
		"primary care", "annual physical", "men's health exam", "lab work", "blood work",
	}},
	{Name: "Fertility", Synonyms: []string{
		"fertility", "sperm analysis", "semen analysis", "vasectomy reversal",
	}},
}

var defaultSuffixWords = []string{
	"llc", "inc", "pllc", "pc", "corp", "ltd",
	"clinic", "clinics", "medical", "center", "centre", "health",
	"men's", "mens", "wellness", "institute", "group",
}

// Link text or href fragments that suggest a page lists services.
var defaultIndicatorPhrases = []string{
	"services", "treatments", "therapies", "what we treat", "what we offer",
	"our services", "conditions", "programs", "pricing", "menu",
}

var defaultPricingWords = []string{
	"price", "pricing", "cost", "per month", "/month", "per session",
	"starting at", "membership",
}

var defaultTreatmentSuffixes = []string{"treatment", "therapy", "program"}

var defaultDuplicatePatterns = []string{"test clinic", "sample", "demo", "example"}

var defaultSignals = Signals{
	Insurance: []string{
		"accept insurance", "accepts insurance", "insurance accepted", "in-network",
		"most insurance", "insurance plans",
	},
	Financing: []string{
		"financing", "payment plan", "payment plans", "carecredit", "care credit",
		"monthly payments",
	},
	FreeConsult: []string{
		"free consultation", "free consult", "complimentary consultation",
		"no-cost consultation",
	},
	Consultation: []string{
		"consultation", "consult", "book an appointment", "schedule an appointment",
	},
	Specializations: []string{
		"men's health", "urology", "endocrinology", "sports medicine",
		"functional medicine", "regenerative medicine", "telehealth",
	},
}
