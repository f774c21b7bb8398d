// Test pages serves the fixture site, or fetches each of its pages the way
// the navigator does to validate extraction.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"pagenav/dom"
	"pagenav/fetcher"
	"pagenav/testsite"
)

var testPaths = []string{
	"/",
	"/faq",
	"/contato",
	"/sobre",
	"/categoria/dev",
	"/profile",
	"/post/1",
	"/termos-de-uso",
	"/plans",
	"/admin",
	"/broken",
}

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	check := flag.Bool("check", false, "fetch every fixture page once and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	site := testsite.New(logger)

	if !*check {
		logger.Info("serving fixture site", "addr", *addr)
		if err := http.ListenAndServe(*addr, site); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	srv := httptest.NewServer(site)
	defer srv.Close()

	client := fetcher.New(fetcher.DefaultOptions(), logger)
	failed := false
	for _, p := range testPaths {
		if !testPage(client, srv.URL+p) {
			failed = true
		}
		fmt.Println(strings.Repeat("=", 80))
	}
	if failed {
		os.Exit(1)
	}
}

func testPage(client *fetcher.Client, url string) bool {
	fmt.Printf("Testing: %s\n", url)

	fp, err := client.Fetch(context.Background(), url)
	if err != nil {
		fmt.Printf("  ERROR fetching: %v\n", err)
		return false
	}

	fmt.Printf("  Title: %s\n", fp.Title)
	fmt.Printf("  Container: <%s>\n", fp.Content.Data)
	fmt.Printf("  Scripts: %d external, %d inline\n", len(fp.ScriptURLs), len(fp.InlineScripts))
	fmt.Printf("  Stylesheets: %d\n", len(fp.StyleLinks))

	text := strings.Join(strings.Fields(dom.TextContent(fp.Content)), " ")
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	fmt.Printf("  Preview: %s\n", text)
	return true
}
