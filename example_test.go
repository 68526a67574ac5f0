package scalareval_test

import (
	"context"
	"fmt"

	"github.com/hupe1980/scalareval"
	"github.com/hupe1980/scalareval/expr"
	"github.com/hupe1980/scalareval/setview"
)

func Example() {
	catalog := setview.NewCatalog[int64]()
	defer catalog.Close()

	evens, _ := catalog.AddValues([]int64{0, 2, 4, 6, 8, 10})
	small, _ := catalog.AddValues([]int64{1, 2, 3, 4, 5})

	eng, err := scalareval.New(catalog, scalareval.WithChunks(2))
	if err != nil {
		panic(err)
	}
	defer eng.Close()

	// (evens AND small) OR evens[8, 10)
	q := expr.Union(
		expr.Intersect(expr.Leaf[int64](evens), expr.Leaf[int64](small)),
		expr.Range[int64](evens, 8, 10, expr.HalfOpen),
	)

	res, err := eng.Evaluate(context.Background(), q)
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Values)
	// Output: [2 4 8]
}

func ExampleEngine_MatchAny() {
	catalog := setview.NewCatalog[float64]()
	defer catalog.Close()

	_, _ = catalog.AddValues([]float64{0.5, 1.5})
	_, _ = catalog.AddValues([]float64{2.5, 3.5})
	_, _ = catalog.AddValues([]float64{1.5, 3.5})

	eng, err := scalareval.New(catalog)
	if err != nil {
		panic(err)
	}
	defer eng.Close()

	res, err := eng.MatchAny(context.Background(), []float64{1.5, 9}, nil)
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Handles())
	// Output: [0 2]
}

func ExampleParseBackend() {
	kind, err := scalareval.ParseBackend("gpu")
	fmt.Println(kind, err)
	// Output: gpu <nil>
}
