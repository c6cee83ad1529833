package core

import "strings"

// keywordRules back the deterministic fallback classifier. First match wins;
// rules are checked in declaration order against the lowercased merchant name.
type keywordRule struct {
	category Category
	keywords []string
}

var keywordRules = []keywordRule{
	{CategoryTransportation, []string{"uber", "lyft", "shell", "chevron", "exxon", "gas", "fuel", "parking", "transit", "metro", "taxi", "toll", "railway"}},
	{CategoryGroceries, []string{"grocer", "supermarket", "whole foods", "safeway", "kroger", "aldi", "trader joe", "costco"}},
	{CategoryFoodDining, []string{"restaurant", "cafe", "coffee", "starbucks", "mcdonald", "pizza", "doordash", "grubhub", "diner", "bakery"}},
	{CategoryUtilities, []string{"electric", "water co", "power", "energy", "internet", "comcast", "verizon", "utility", "telecom"}},
	{CategoryHealthcare, []string{"pharmacy", "cvs", "walgreens", "clinic", "hospital", "dental", "medical"}},
	{CategoryEntertainment, []string{"netflix", "spotify", "hulu", "cinema", "theater", "steam", "playstation", "concert"}},
	{CategoryEducation, []string{"udemy", "coursera", "tuition", "school", "university", "academy"}},
	{CategoryInsurance, []string{"insurance", "geico", "allstate", "aetna", "assurance"}},
	{CategoryTravel, []string{"airline", "airways", "hotel", "airbnb", "delta", "united air", "expedia", "booking.com", "hostel"}},
	{CategoryHomeGarden, []string{"home depot", "lowes", "ikea", "garden", "furniture", "hardware"}},
	{CategoryPersonalCare, []string{"salon", "spa", "barber", "gym", "fitness"}},
	{CategoryGiftsDonations, []string{"donation", "charity", "gofundme", "red cross"}},
	{CategoryBusiness, []string{"fedex", "ups store", "linkedin", "zoom", "office supply"}},
	{CategoryShopping, []string{"amazon", "walmart", "target", "best buy", "ebay", "store", "shop", "mall"}},
}

// FallbackCategory maps a merchant name to a category by keyword matching.
// It always returns a member of the closed set, defaulting to Other.
func FallbackCategory(merchant string) Category {
	name := strings.ToLower(merchant)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}
