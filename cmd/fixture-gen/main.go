package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mdmtools/matchengine/internal/fixture"
)

// #region main

func main() {
	inPath := flag.String("in", "valid.csv", "reference customer feed")
	outPath := flag.String("out", "test_matches.csv", "output incoming feed")
	seed := flag.Int64("seed", 42, "random seed")
	exact := flag.Int("exact", 50, "records copied verbatim")
	veryClose := flag.Int("very-close", 100, "records with minor variations")
	somewhatClose := flag.Int("somewhat-close", 100, "records with moderate variations")
	notClose := flag.Int("not-close", 250, "records with heavy variations")
	flag.Parse()

	if err := run(*inPath, *outPath, *seed, fixture.Distribution{
		Exact:         *exact,
		VeryClose:     *veryClose,
		SomewhatClose: *somewhatClose,
		NotClose:      *notClose,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region generate

func run(inPath, outPath string, seed int64, dist fixture.Distribution) error {
	refs, err := fixture.LoadCustomers(inPath)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d reference records from %s\n", len(refs), inPath)

	out, err := fixture.NewGenerator(seed).Generate(refs, dist)
	if err != nil {
		return err
	}
	if err := fixture.SaveCustomers(outPath, out); err != nil {
		return err
	}

	total := dist.Total()
	fmt.Printf("Saved %d records to %s\n", total, outPath)
	fmt.Println("=== GENERATION SUMMARY ===")
	fmt.Printf("  exact: %d (%.1f%%)\n", dist.Exact, pct(dist.Exact, total))
	fmt.Printf("  very close: %d (%.1f%%)\n", dist.VeryClose, pct(dist.VeryClose, total))
	fmt.Printf("  somewhat close: %d (%.1f%%)\n", dist.SomewhatClose, pct(dist.SomewhatClose, total))
	fmt.Printf("  not close: %d (%.1f%%)\n", dist.NotClose, pct(dist.NotClose, total))
	return nil
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// #endregion generate
