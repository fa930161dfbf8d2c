// Command brakecli drives the enrol/verify protocol phases and a
// decoder-sweep diagnostic from the command line, in the teacher's
// flag.FlagSet-per-subcommand style (cmd/ntrucli).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/MaxWarman/BRAKE/field"
	"github.com/MaxWarman/BRAKE/internal/telemetry"
	"github.com/MaxWarman/BRAKE/oprf"
	"github.com/MaxWarman/BRAKE/orchestrator"
	"github.com/MaxWarman/BRAKE/store"
	"github.com/MaxWarman/BRAKE/vault"
)

// printTelemetry prints the phase timing summary collected since the last
// snapshot, one line per label, for -profile callers.
func printTelemetry() {
	summaries := telemetry.Summarize(telemetry.SnapshotAndReset())
	for _, s := range summaries {
		fmt.Printf("  %-8s count=%d total=%s mean=%s\n", s.Label, s.Count, s.Total, s.Mean)
	}
}

func usage() {
	fmt.Println(`usage: brakecli <enrol|verify|serve|decoder-sweep> [options]

Subcommands:
  enrol    Enrol a client and write its profile to -db
           Flags:
             -db      <dir>     profile store directory (default: ./brake_profiles)
             -id      <int>     client id (required)
             -q       <int>     prime group order (default: 2147483647)
             -tau     <int>     verification threshold (default: 8)
             -template <csv>    comma-separated biometric template values (required)
             -profile <bool>    print phase timing summary after completion

  verify   Verify a fresh template against a stored profile
           Flags:
             -db      <dir>     profile store directory (default: ./brake_profiles)
             -id      <int>     client id (required)
             -template <csv>    comma-separated biometric template values (required)
             -rounds  <int>     decoder round budget (default: 5000)
             -profile <bool>    print phase timing summary after completion

  serve    Run an interactive enrol/verify loop reading commands from stdin,
           for local end-to-end testing against a single evaluator and
           profile store.
           Flags:
             -db      <dir>     profile store directory (default: ./brake_profiles)

  decoder-sweep  Render an HTML chart of decoder success probability vs.
                 template overlap (spec.md "Decoder monotonicity" property).
           Flags:
             -q       <int>     prime group order (default: 2147483647)
             -tau     <int>     verification threshold (default: 8)
             -size    <int>     template size (default: 44)
             -rounds  <int>     decoder round budget (default: 5000)
             -trials  <int>     trials per overlap level (default: 20)
             -out     <path>    output HTML file (default: decoder_sweep.html)`)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "enrol":
		runEnrol(os.Args[2:])
	case "verify":
		runVerify(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "decoder-sweep":
		runDecoderSweep(os.Args[2:])
	default:
		usage()
	}
}

func parseTemplate(csv string) ([]*big.Int, error) {
	parts := strings.Split(csv, ",")
	out := make([]*big.Int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, ok := new(big.Int).SetString(p, 10)
		if !ok {
			return nil, fmt.Errorf("invalid template value %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

func openStore(dir string) *store.FileStore {
	s, err := store.NewFileStore(dir)
	if err != nil {
		log.Fatalf("[brakecli] open store %s: %v", dir, err)
	}
	return s
}

func sharedEvaluator() *oprf.Evaluator {
	return oprf.NewEvaluator(oprf.EvaluatorKeyFromLabel("evaluator_secret_key"))
}

func runEnrol(args []string) {
	fs := flag.NewFlagSet("enrol", flag.ExitOnError)
	db := fs.String("db", "./brake_profiles", "profile store directory")
	id := fs.Int64("id", 0, "client id")
	q := fs.String("q", "2147483647", "prime group order")
	tau := fs.Int("tau", 8, "verification threshold")
	templateCSV := fs.String("template", "", "comma-separated biometric template values")
	showProfile := fs.Bool("profile", false, "print phase timing summary after completion")
	fs.Parse(args)

	if *id == 0 || *templateCSV == "" {
		log.Fatalf("[brakecli] enrol: -id and -template are required")
	}
	qBig, ok := new(big.Int).SetString(*q, 10)
	if !ok {
		log.Fatalf("[brakecli] enrol: invalid -q %q", *q)
	}
	g, err := field.NewGroup(qBig)
	if err != nil {
		log.Fatalf("[brakecli] enrol: %v", err)
	}
	tmpl, err := parseTemplate(*templateCSV)
	if err != nil {
		log.Fatalf("[brakecli] enrol: %v", err)
	}

	s := openStore(*db)
	ev := sharedEvaluator()
	profile, err := orchestrator.Enrol(g, ev, *id, tmpl, *tau)
	if err != nil {
		log.Fatalf("[brakecli] enrol: %v", err)
	}
	if err := s.Save(profile); err != nil {
		log.Fatalf("[brakecli] enrol: %v", err)
	}
	fmt.Printf("enrolled client_id=%d profile written to %s\n", *id, *db)
	if *showProfile {
		printTelemetry()
	}
}

func runVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	db := fs.String("db", "./brake_profiles", "profile store directory")
	id := fs.Int64("id", 0, "client id")
	templateCSV := fs.String("template", "", "comma-separated biometric template values")
	rounds := fs.Int("rounds", vault.DefaultRounds, "decoder round budget")
	showProfile := fs.Bool("profile", false, "print phase timing summary after completion")
	fs.Parse(args)

	if *id == 0 || *templateCSV == "" {
		log.Fatalf("[brakecli] verify: -id and -template are required")
	}
	tmpl, err := parseTemplate(*templateCSV)
	if err != nil {
		log.Fatalf("[brakecli] verify: %v", err)
	}

	s := openStore(*db)
	profile, err := s.Load(*id)
	if err != nil {
		log.Fatalf("[brakecli] verify: %v", err)
	}
	g, err := field.NewGroup(big.NewInt(profile.GroupOrder))
	if err != nil {
		log.Fatalf("[brakecli] verify: %v", err)
	}

	ev := sharedEvaluator()
	candidateKey, err := orchestrator.Verify(g, ev, profile, tmpl, *rounds)
	if err != nil {
		fmt.Printf("verification failed for client_id=%d: %v\n", *id, err)
		os.Exit(1)
	}

	serverKey, ciphertext, err := orchestrator.TransportSessionKey(&candidateKey.PublicKey)
	if err != nil {
		log.Fatalf("[brakecli] verify: %v", err)
	}
	clientKey, err := orchestrator.RecoverSessionKey(candidateKey, ciphertext)
	if err != nil || !orchestrator.SessionKeysMatch(clientKey, serverKey) {
		fmt.Printf("verification failed for client_id=%d: session key mismatch\n", *id)
		os.Exit(1)
	}
	fmt.Printf("verified client_id=%d: session keys match\n", *id)
	if *showProfile {
		printTelemetry()
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	db := fs.String("db", "./brake_profiles", "profile store directory")
	fs.Parse(args)

	s := openStore(*db)
	ev := sharedEvaluator()
	fmt.Println("brakecli serve: reading commands from stdin")
	fmt.Println(`commands: "enrol <id> <q> <tau> <v1,v2,...>" | "verify <id> <v1,v2,...>" | "quit"`)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit":
			return
		case "enrol":
			if len(fields) != 5 {
				fmt.Println("usage: enrol <id> <q> <tau> <v1,v2,...>")
				continue
			}
			handleServeEnrol(s, ev, fields[1:])
		case "verify":
			if len(fields) != 3 {
				fmt.Println("usage: verify <id> <v1,v2,...>")
				continue
			}
			handleServeVerify(s, ev, fields[1:])
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func handleServeEnrol(s *store.FileStore, ev *oprf.Evaluator, args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Printf("invalid id: %v\n", err)
		return
	}
	qBig, ok := new(big.Int).SetString(args[1], 10)
	if !ok {
		fmt.Printf("invalid q: %q\n", args[1])
		return
	}
	tau, err := strconv.Atoi(args[2])
	if err != nil {
		fmt.Printf("invalid tau: %v\n", err)
		return
	}
	g, err := field.NewGroup(qBig)
	if err != nil {
		fmt.Printf("enrol failed: %v\n", err)
		return
	}
	tmpl, err := parseTemplate(args[3])
	if err != nil {
		fmt.Printf("enrol failed: %v\n", err)
		return
	}
	profile, err := orchestrator.Enrol(g, ev, id, tmpl, tau)
	if err != nil {
		fmt.Printf("enrol failed: %v\n", err)
		return
	}
	if err := s.Save(profile); err != nil {
		fmt.Printf("enrol failed: %v\n", err)
		return
	}
	fmt.Printf("enrolled client_id=%d\n", id)
}

func handleServeVerify(s *store.FileStore, ev *oprf.Evaluator, args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Printf("invalid id: %v\n", err)
		return
	}
	tmpl, err := parseTemplate(args[1])
	if err != nil {
		fmt.Printf("verify failed: %v\n", err)
		return
	}
	profile, err := s.Load(id)
	if err != nil {
		fmt.Printf("verify failed: %v\n", err)
		return
	}
	g, err := field.NewGroup(big.NewInt(profile.GroupOrder))
	if err != nil {
		fmt.Printf("verify failed: %v\n", err)
		return
	}
	candidateKey, err := orchestrator.Verify(g, ev, profile, tmpl, vault.DefaultRounds)
	if err != nil {
		fmt.Printf("verification failed for client_id=%d: %v\n", id, err)
		return
	}
	serverKey, ciphertext, err := orchestrator.TransportSessionKey(&candidateKey.PublicKey)
	if err != nil {
		fmt.Printf("verify failed: %v\n", err)
		return
	}
	clientKey, err := orchestrator.RecoverSessionKey(candidateKey, ciphertext)
	if err != nil || !orchestrator.SessionKeysMatch(clientKey, serverKey) {
		fmt.Printf("verification failed for client_id=%d: session key mismatch\n", id)
		return
	}
	fmt.Printf("verified client_id=%d: session keys match\n", id)
}

func runDecoderSweep(args []string) {
	fs := flag.NewFlagSet("decoder-sweep", flag.ExitOnError)
	qFlag := fs.String("q", "2147483647", "prime group order")
	tau := fs.Int("tau", 8, "verification threshold")
	size := fs.Int("size", 44, "template size")
	rounds := fs.Int("rounds", vault.DefaultRounds, "decoder round budget")
	trials := fs.Int("trials", 20, "trials per overlap level")
	out := fs.String("out", "decoder_sweep.html", "output HTML file")
	fs.Parse(args)

	qBig, ok := new(big.Int).SetString(*qFlag, 10)
	if !ok {
		log.Fatalf("[brakecli] decoder-sweep: invalid -q %q", *qFlag)
	}
	g, err := field.NewGroup(qBig)
	if err != nil {
		log.Fatalf("[brakecli] decoder-sweep: %v", err)
	}

	overlaps := make([]int, 0, *size-*tau+1)
	rates := make([]float64, 0, cap(overlaps))
	for overlap := *tau; overlap <= *size; overlap++ {
		rate := sweepOverlapRate(g, *tau, *size, overlap, *rounds, *trials)
		overlaps = append(overlaps, overlap)
		rates = append(rates, rate)
		fmt.Printf("overlap=%d success_rate=%.2f\n", overlap, rate)
	}

	renderDecoderSweepChart(overlaps, rates, *out)
	fmt.Printf("wrote %s\n", *out)
}

// sweepOverlapRate measures the decoder's empirical success rate at a
// fixed overlap, enrolling a fresh template each trial (spec.md §8
// "Decoder monotonicity").
func sweepOverlapRate(g field.Group, tau, size, overlap, rounds, trials int) float64 {
	successes := 0
	for trial := 0; trial < trials; trial++ {
		enrolTmpl := make([]*big.Int, size)
		for i := 0; i < size; i++ {
			enrolTmpl[i] = big.NewInt(int64(i + 1))
		}
		verifyTmpl := make([]*big.Int, size)
		copy(verifyTmpl, enrolTmpl)
		for i := overlap; i < size; i++ {
			verifyTmpl[i] = big.NewInt(int64(1_000_000 + trial*size + i))
		}

		f, err := vault.GenerateSecretPolynomial(g, tau)
		if err != nil {
			log.Fatalf("[brakecli] decoder-sweep: %v", err)
		}
		v, err := vault.Lock(g, enrolTmpl, f)
		if err != nil {
			log.Fatalf("[brakecli] decoder-sweep: %v", err)
		}
		rng := vault.NewRNG(int64(trial))
		fHat, err := vault.Unlock(g, v, verifyTmpl, tau, rounds, rng)
		if err == nil && fHat.Equal(f) {
			successes++
		}
	}
	return float64(successes) / float64(trials)
}

func renderDecoderSweepChart(overlaps []int, rates []float64, outPath string) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Decoder success probability vs. template overlap",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "overlap |T∩T′|"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "success rate", Type: "value"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	xAxis := make([]string, len(overlaps))
	data := make([]opts.LineData, len(rates))
	for i, o := range overlaps {
		xAxis[i] = strconv.Itoa(o)
		data[i] = opts.LineData{Value: rates[i]}
	}
	line.SetXAxis(xAxis).AddSeries("success rate", data)

	f, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("[brakecli] decoder-sweep: %v", err)
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		log.Fatalf("[brakecli] decoder-sweep: %v", err)
	}
}
