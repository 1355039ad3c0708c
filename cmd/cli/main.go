package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hamed0406/bgpcheck/internal/repo"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	api = strings.TrimRight(api, "/")

	var name string
	if len(os.Args) > 1 {
		name = os.Args[1]
	}

	req, err := http.NewRequest(http.MethodGet, api+checksPath(name), nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Invalid API_BASE:", err)
		os.Exit(1)
	}
	if key := os.Getenv("BGPCHECK_API_KEY"); key != "" {
		req.Header.Set("X-API-Key", key)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error contacting API:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintln(os.Stderr, "API returned status:", resp.Status)
		os.Exit(1)
	}

	var list []repo.CheckStatus
	if name != "" {
		var one repo.CheckStatus
		err = json.NewDecoder(resp.Body).Decode(&one)
		list = append(list, one)
	} else {
		err = json.NewDecoder(resp.Body).Decode(&list)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Bad response:", err)
		os.Exit(1)
	}
	printTable(os.Stdout, list)
}

// checksPath is the API path for one check, or for all of them when name is
// empty.
func checksPath(name string) string {
	if name == "" {
		return "/api/checks"
	}
	return "/api/checks/" + url.PathEscape(name)
}

func printTable(out io.Writer, list []repo.CheckStatus) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tMETHOD\tSTATE\tADVERTISED\tPREFIXES\tLAST RESULT")
	for _, st := range list {
		last := "-"
		if st.LastResult != nil {
			last = st.LastResult.Message
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\n",
			st.Name, st.Method, st.Detail, st.Advertised, strings.Join(st.Prefixes, ","), last)
	}
	_ = w.Flush()
}
