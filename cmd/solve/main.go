package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/azulrosales/routing-solver/internal/config"
	"github.com/azulrosales/routing-solver/internal/matrix"
	"github.com/azulrosales/routing-solver/internal/solver"
)

func main() {
	cfgPath := flag.String("config", "config.json", "problem definition file")
	matrixPath := flag.String("matrix", "", "optional travel-time matrix file (skips the matrix API)")
	dimension := flag.String("dimension", "time", "matrix dimension: time or distance")
	budget := flag.Duration("budget", 2*time.Second, "search time budget")
	asJSON := flag.Bool("json", false, "print the solution as JSON instead of a report")
	flag.Parse()

	prob, err := config.LoadProblem(*cfgPath)
	if err != nil {
		log.Fatalf("load %s: %v", *cfgPath, err)
	}
	rp := prob.Resolve()

	dim := matrix.Dimension(strings.ToLower(*dimension))
	if dim != matrix.DimensionTime && dim != matrix.DimensionDistance {
		log.Fatalf("unknown dimension %q", *dimension)
	}

	ctx := context.Background()
	m, err := loadMatrix(ctx, *matrixPath, rp.Locations, dim)
	if err != nil {
		log.Fatalf("time matrix couldn't be generated: %v", err)
	}

	params := solver.Params{
		NumVehicles:  rp.NumVehicles,
		Starts:       rp.Starts,
		Ends:         rp.Ends,
		ServiceTime:  rp.ServiceTime,
		MaxRouteTime: rp.MaxRouteTime,
		SlackTime:    rp.SlackTime,
	}
	if rp.HasBreak {
		params.Break = &solver.BreakSpec{Duration: rp.BreakTime, EarliestStart: rp.BreakStartTime}
	}

	in, err := solver.NewInstance(m, params)
	if err != nil {
		log.Fatalf("invalid problem: %v", err)
	}

	res := solver.Solve(ctx, in, solver.Options{TimeBudget: *budget})
	if res.Status != solver.StatusSolved {
		fmt.Println("No solution found")
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatalf("encode solution: %v", err)
		}
		return
	}
	printSolution(res.Solution)
}

func loadMatrix(ctx context.Context, path string, locations []string, dim matrix.Dimension) ([][]int, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var m [][]int
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
	key := os.Getenv("DISTANCE_MATRIX_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("DISTANCE_MATRIX_API_KEY is not set and no -matrix file given")
	}
	var cache matrix.Cache
	if url := os.Getenv("REDIS_URL"); url != "" {
		if rc, err := matrix.NewRedisCache(url, 24*time.Hour); err == nil {
			cache = rc
		}
	}
	client := matrix.NewClient(matrix.ClientConfig{APIKey: key, Cache: cache})
	return client.Matrix(ctx, locations, dim)
}

func printSolution(sol *solver.Solution) {
	fmt.Println("Breaks:")
	for _, rt := range sol.Routes {
		if rt.Break == nil {
			continue
		}
		if rt.Break.Performed {
			fmt.Printf("Break for vehicle %d: Start(%d) Duration(%d)\n", rt.Vehicle, rt.Break.Start, rt.Break.Duration)
		} else {
			fmt.Printf("Break for vehicle %d: Unperformed\n", rt.Vehicle)
		}
	}
	fmt.Println()

	for _, rt := range sol.Routes {
		fmt.Printf("Route for vehicle %d:\n", rt.Vehicle)
		parts := make([]string, len(rt.Stops))
		for i, st := range rt.Stops {
			parts[i] = fmt.Sprintf("%d Time(%d)", st.Node, st.Time)
		}
		fmt.Println(strings.Join(parts, " -> "))
		fmt.Printf("Time of the route: %dmin\n\n", rt.Duration)
	}
	fmt.Printf("Total time of all routes: %dmin\n", sol.TotalTime)
}
