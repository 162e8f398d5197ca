package fixture

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mdmtools/matchengine/internal/store"
)

// #region distribution

// Distribution is the number of synthetic incoming records to derive
// per target similarity band.
type Distribution struct {
	Exact         int
	VeryClose     int
	SomewhatClose int
	NotClose      int
}

// DefaultDistribution mirrors the profile of the production validation
// set: half the records deliberately far from their source.
func DefaultDistribution() Distribution {
	return Distribution{Exact: 50, VeryClose: 100, SomewhatClose: 100, NotClose: 250}
}

// Total returns the number of records the distribution produces.
func (d Distribution) Total() int {
	return d.Exact + d.VeryClose + d.SomewhatClose + d.NotClose
}

// #endregion distribution

// #region generator

// sourceSystems is the upstream feed identifier pool.
var sourceSystems = []string{
	"sap_hmh", "sfdc_hmh", "sfdc_nwea", "112",
	"sis_pearson", "erp_oracle", "crm_edtech",
}

// abbreviations maps full forms to accepted short forms, applied to
// names and street addresses to produce near-duplicates.
var abbreviations = map[string][]string{
	"Street":            {"St", "ST"},
	"Road":              {"Rd", "RD"},
	"Drive":             {"Dr", "DR"},
	"Avenue":            {"Ave", "AVE"},
	"Boulevard":         {"Blvd", "BLVD"},
	"North":             {"N", "NORTH"},
	"South":             {"S", "SOUTH"},
	"East":              {"E", "EAST"},
	"West":              {"W", "WEST"},
	"Northeast":         {"NE", "NORTHEAST"},
	"Southeast":         {"SE", "SOUTHEAST"},
	"Northwest":         {"NW", "NORTHWEST"},
	"Southwest":         {"SW", "SOUTHWEST"},
	"Elementary School": {"Elem School", "Elementary Sch", "Elem Sch"},
	"High School":       {"HS", "High Sch", "Secondary School"},
	"Learning Center":   {"Learning Centre", "Educational Center", "Education Center"},
	"Community College": {"Comm College", "CC", "Community Coll"},
	"School District":   {"School Dist", "Sch Dist", "SD"},
}

// commonTypos maps correctly spelled words to plausible misspellings.
var commonTypos = map[string][]string{
	"Academy":    {"Acadamy", "Acadmey"},
	"Elementary": {"Elementry", "Elmentary"},
	"Secondary":  {"Secondry", "Secandary"},
	"Community":  {"Comunity", "Commmunity"},
	"Christian":  {"Cristian", "Chirstian"},
	"Learning":   {"Learing", "Lerning"},
	"District":   {"Distict", "Distrct"},
	"College":    {"Collge", "Colegee"},
}

var leadingNumber = regexp.MustCompile(`^(\d+)(.*)$`)

// Generator derives synthetic incoming records from a reference set.
// All randomness flows through the seeded source so a run is
// reproducible.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator with a fixed seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate derives one synthetic record per distribution slot, walking
// a shuffled copy of the reference set. The reference set must hold at
// least dist.Total() records.
func (g *Generator) Generate(refs []store.Customer, dist Distribution) ([]store.Customer, error) {
	if len(refs) < dist.Total() {
		return nil, fmt.Errorf("need %d reference records, have %d", dist.Total(), len(refs))
	}

	shuffled := make([]store.Customer, len(refs))
	copy(shuffled, refs)
	g.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	out := make([]store.Customer, 0, dist.Total())
	idx := 0
	take := func(n int, derive func(store.Customer) store.Customer) {
		for i := 0; i < n; i++ {
			out = append(out, derive(shuffled[idx]))
			idx++
		}
	}
	take(dist.Exact, g.exact)
	take(dist.VeryClose, g.veryClose)
	take(dist.SomewhatClose, g.somewhatClose)
	take(dist.NotClose, g.notClose)

	for i := range out {
		out[i].FullDetail = out[i].BuildFullDetail()
	}
	return out, nil
}

// #endregion generator

// #region derivations

// exact copies the record verbatim; only the identifier and source
// system differ.
func (g *Generator) exact(ref store.Customer) store.Customer {
	c := g.base(ref)
	return c
}

// veryClose applies minor variations: casing, light abbreviation,
// dropped apostrophes.
func (g *Generator) veryClose(ref store.Customer) store.Customer {
	c := g.base(ref)
	if g.chance(0.7) {
		c.Name = g.caseVariant(c.Name)
	}
	if g.chance(0.5) {
		c.AddressLine1 = g.abbreviate(c.AddressLine1, false)
	}
	if g.chance(0.3) {
		c.Name = strings.ReplaceAll(c.Name, "'", "")
	}
	return c
}

// somewhatClose abbreviates aggressively and sometimes introduces a
// typo or perturbs the street number or postal code.
func (g *Generator) somewhatClose(ref store.Customer) store.Customer {
	c := g.base(ref)
	c.Name = g.abbreviate(c.Name, true)
	c.AddressLine1 = g.abbreviate(c.AddressLine1, true)
	if g.chance(0.4) {
		c.Name = g.typo(c.Name, 1)
	}
	if g.chance(0.3) {
		c.AddressLine1 = g.varyStreetNumber(c.AddressLine1)
	}
	if g.chance(0.3) {
		c.PostalCode = g.varyPostalCode(c.PostalCode)
	}
	return c
}

// notClose stacks every perturbation, occasionally swapping the street
// type outright.
func (g *Generator) notClose(ref store.Customer) store.Customer {
	c := g.base(ref)
	c.Name = g.abbreviate(c.Name, true)
	c.Name = g.typo(c.Name, 1+g.rng.Intn(2))
	c.AddressLine1 = g.abbreviate(c.AddressLine1, true)
	c.AddressLine1 = g.varyStreetNumber(c.AddressLine1)
	c.PostalCode = g.varyPostalCode(c.PostalCode)

	if g.chance(0.3) {
		streetTypes := []string{"St", "Ave", "Rd", "Dr", "Blvd", "Ct", "Ln", "Way"}
		for _, st := range streetTypes {
			if strings.Contains(c.AddressLine1, st) {
				repl := streetTypes[g.rng.Intn(len(streetTypes))]
				for repl == st {
					repl = streetTypes[g.rng.Intn(len(streetTypes))]
				}
				c.AddressLine1 = strings.Replace(c.AddressLine1, st, repl, 1)
				break
			}
		}
	}
	return c
}

// base starts every derivation: fresh identifier, random source
// system, all other fields copied.
func (g *Generator) base(ref store.Customer) store.Customer {
	c := ref
	c.ID = store.NewTestID()
	c.SourceSystem = sourceSystems[g.rng.Intn(len(sourceSystems))]
	c.FullDetail = ""
	c.Embedding = nil
	return c
}

// #endregion derivations

// #region perturbations

func (g *Generator) chance(p float64) bool {
	return g.rng.Float64() < p
}

func (g *Generator) caseVariant(text string) string {
	switch g.rng.Intn(4) {
	case 0:
		return strings.ToLower(text)
	case 1:
		return strings.ToUpper(text)
	case 2:
		return strings.Title(text)
	default:
		return text
	}
}

// abbreviate substitutes full forms with short forms. Aggressive mode
// tries more substitutions, pushing similarity lower.
func (g *Generator) abbreviate(text string, aggressive bool) string {
	keys := make([]string, 0, len(abbreviations))
	for k := range abbreviations {
		keys = append(keys, k)
	}
	// Map order is nondeterministic; sort before the seeded shuffle so
	// same-seed runs pick the same substitutions.
	sort.Strings(keys)
	g.rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	n := 1 + g.rng.Intn(2)
	if aggressive {
		n = 2 + g.rng.Intn(3)
	}
	if n > len(keys) {
		n = len(keys)
	}

	result := text
	for _, k := range keys[:n] {
		if strings.Contains(result, k) {
			alts := abbreviations[k]
			result = strings.ReplaceAll(result, k, alts[g.rng.Intn(len(alts))])
		}
	}
	return result
}

// typo replaces up to n correctly spelled words with misspellings.
func (g *Generator) typo(text string, n int) string {
	present := make([]string, 0, len(commonTypos))
	for k := range commonTypos {
		if strings.Contains(text, k) {
			present = append(present, k)
		}
	}
	sort.Strings(present)
	g.rng.Shuffle(len(present), func(i, j int) { present[i], present[j] = present[j], present[i] })

	if n > len(present) {
		n = len(present)
	}
	result := text
	for _, k := range present[:n] {
		alts := commonTypos[k]
		result = strings.ReplaceAll(result, k, alts[g.rng.Intn(len(alts))])
	}
	return result
}

// varyStreetNumber shifts a leading street number by up to three,
// clamped at one.
func (g *Generator) varyStreetNumber(address string) string {
	m := leadingNumber.FindStringSubmatch(address)
	if m == nil {
		return address
	}
	num, err := strconv.Atoi(m[1])
	if err != nil {
		return address
	}
	deltas := []int{-3, -2, -1, 1, 2, 3}
	num += deltas[g.rng.Intn(len(deltas))]
	if num < 1 {
		num = 1
	}
	return strconv.Itoa(num) + m[2]
}

// varyPostalCode perturbs the trailing digits of a US ZIP or ZIP+4.
func (g *Generator) varyPostalCode(code string) string {
	if before, after, found := strings.Cut(code, "-"); found {
		if len(before) == 5 && isDigits(before) {
			if g.chance(0.3) {
				return before
			}
			if len(after) == 4 && isDigits(after) {
				return before + "-" + after[:3] + strconv.Itoa(g.rng.Intn(10))
			}
		}
		return code
	}
	if len(code) == 5 && isDigits(code) {
		if g.chance(0.5) {
			return code[:4] + strconv.Itoa(g.rng.Intn(10))
		}
		return code[:3] + strconv.Itoa(g.rng.Intn(10)) + strconv.Itoa(g.rng.Intn(10))
	}
	return code
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// #endregion perturbations
