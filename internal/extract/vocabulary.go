package extract

import "abchat/internal/domain"

// vocabulary maps each canonical value to the phrases that name it. Phrases are
// written folded (lower case, no accents); multi-word phrases match token sequences.
// A one-letter token such as the "a" of "experimento a" only matches an arm label (see armLetter).
var vocabulary = map[domain.Dimension]map[string][]string{
	domain.DimArm: {
		string(domain.ArmControl):   {"control", "grupo control", "baseline"},
		string(domain.ArmTreatment): {"experimento a", "experiment a", "variante", "variant", "tratamiento", "treatment", "grupo a"},
	},
	domain.DimRegion: {
		string(domain.RegionEste):  {"este", "east"},
		string(domain.RegionNorte): {"norte", "north"},
		string(domain.RegionSur):   {"sur", "south"},
		string(domain.RegionOeste): {"oeste", "west"},
	},
	domain.DimStoreType: {
		string(domain.StoreMall):   {"mall", "centro comercial", "shopping"},
		string(domain.StoreStreet): {"street", "calle"},
		string(domain.StoreOutlet): {"outlet"},
	},
}

// esteCues are the words after which "este" names the region rather than a demonstrative.
var esteCues = map[string]struct{}{
	"region": {}, "zona": {}, "el": {}, "del": {}, "al": {},
}
