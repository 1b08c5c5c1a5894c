package assist

import (
	"context"
	"encoding/json"
	"errors"

	"agrimitra/internal/aitext"
	"agrimitra/internal/core"
)

// Scheme is a government programme relevant to farmers.
type Scheme struct {
	Title       string `json:"title"`
	Desc        string `json:"desc"`
	Link        string `json:"link"`
	Eligibility string `json:"eligibility"`
	HowToApply  string `json:"how_to_apply"`
}

// SchemeList is the scheme listing response.
type SchemeList struct {
	Schemes []Scheme `json:"schemes"`
	Raw     string   `json:"raw"`
}

// Schemes lists farmer schemes in lang. An unusable reply is replaced with a curated list.
func (s *Service) Schemes(ctx context.Context, lang core.Language) (*SchemeList, error) {
	list, _, err := s.caches.Schemes.GetOrLoad(ctx, "schemes:"+string(lang), func(ctx context.Context) (*SchemeList, error) {
		text, err := s.gen.GenerateText(ctx, schemesPrompt(lang))
		if err != nil {
			logRemoteError(ctx, "schemes", err)
			return &SchemeList{Schemes: curatedSchemes(lang)}, errUncacheable
		}

		schemes := parseSchemes(text)
		if len(schemes) == 0 {
			schemes = curatedSchemes(lang)
		}
		return &SchemeList{Schemes: schemes, Raw: text}, nil
	})
	if err != nil && !errors.Is(err, errUncacheable) {
		return nil, core.NewInternalError("Schemes fetch failed", err)
	}
	return list, nil
}

// parseSchemes reads the "schemes" array, skipping records that are not objects.
func parseSchemes(text string) []Scheme {
	var payload struct {
		Schemes []json.RawMessage `json:"schemes"`
	}
	if !aitext.ExtractInto(text, &payload) {
		return nil
	}
	out := make([]Scheme, 0, len(payload.Schemes))
	for _, item := range payload.Schemes {
		var scheme Scheme
		if err := json.Unmarshal(item, &scheme); err != nil || scheme.Title == "" {
			continue
		}
		out = append(out, scheme)
	}
	return out
}

// curatedSchemes returns a fresh copy of the fallback list for lang.
func curatedSchemes(lang core.Language) []Scheme {
	src := curatedSchemesEn
	if lang.IsHindi() {
		src = curatedSchemesHi
	}
	out := make([]Scheme, len(src))
	copy(out, src)
	return out
}

var curatedSchemesEn = []Scheme{
	{
		Title:       "PM-KISAN",
		Desc:        "Income support of ₹6,000 per year to eligible farmer families in three installments.",
		Link:        "https://pmkisan.gov.in/",
		Eligibility: "Eligible farmer families as per land records.",
		HowToApply:  "Register via State/ District Agriculture Department or PM-KISAN portal.",
	},
	{
		Title:       "PM Fasal Bima Yojana (PMFBY)",
		Desc:        "Crop insurance at low premium; protection from natural risks.",
		Link:        "https://pmfby.gov.in/",
		Eligibility: "Farmers (including tenant/sharecroppers) sowing notified crops.",
		HowToApply:  "Apply via nearest Bank/CSC/Insurer or PMFBY portal.",
	},
	{
		Title:       "Soil Health Card Scheme",
		Desc:        "Soil testing and recommendations with a health card.",
		Link:        "https://soilhealth.dac.gov.in/",
		Eligibility: "All farmers.",
		HowToApply:  "Submit soil sample via Agriculture Dept/KVK.",
	},
	{
		Title:       "PM Krishi Sinchayee Yojana (PMKSY)",
		Desc:        "Irrigation expansion and support for micro‑irrigation.",
		Link:        "https://pmksy.gov.in/",
		Eligibility: "As per State guidelines.",
		HowToApply:  "Apply via State Agriculture/Irrigation Dept.",
	},
}

var curatedSchemesHi = []Scheme{
	{
		Title:       "प्रधानमंत्री किसान सम्मान निधि (PM-KISAN)",
		Desc:        "छोटे और सीमांत किसानों को प्रति वर्ष ₹6,000 की वित्तीय सहायता, 3 किस्तों में।",
		Link:        "https://pmkisan.gov.in/",
		Eligibility: "भूमि रिकॉर्ड के अनुसार योग्य किसान परिवार।",
		HowToApply:  "राज्य/जिला कृषि विभाग या PM-KISAN पोर्टल पर पंजीकरण।",
	},
	{
		Title:       "प्रधानमंत्री फसल बीमा योजना (PMFBY)",
		Desc:        "कम प्रीमियम पर फसल बीमा, प्राकृतिक आपदाओं से सुरक्षा।",
		Link:        "https://pmfby.gov.in/",
		Eligibility: "किसान (किरायेदार/बटाईदार सहित) जो नामित फसल बोते हैं।",
		HowToApply:  "निकटतम बैंक/CSC/बीमा कंपनी या PMFBY पोर्टल से आवेदन।",
	},
	{
		Title:       "मृदा स्वास्थ्य कार्ड योजना",
		Desc:        "मिट्टी की जाँच और सिफारिशों के साथ स्वास्थ्य कार्ड।",
		Link:        "https://soilhealth.dac.gov.in/",
		Eligibility: "सभी किसान।",
		HowToApply:  "कृषि विभाग/कृषि विज्ञान केंद्र में नमूना देकर।",
	},
	{
		Title:       "प्रधानमंत्री कृषि सिंचाई योजना (PMKSY)",
		Desc:        "सिंचाई विस्तार, माइक्रो-इरिगेशन पर सहायता।",
		Link:        "https://pmksy.gov.in/",
		Eligibility: "राज्य दिशा-निर्देश अनुसार किसान।",
		HowToApply:  "राज्य कृषि/सिंचाई विभाग के माध्यम से आवेदन।",
	},
}
