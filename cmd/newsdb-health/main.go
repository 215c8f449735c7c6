// Command newsdb-health is a lean health sidecar. It answers liveness
// probes without touching the main server and, when given an upstream
// address, checks NNTP reachability on demand so orchestrators can tell
// "newsdb is down" apart from "the news server is down".
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"newsdb/pkg/nntp"
)

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	ver := flag.String("version", "dev", "version string to return")
	upstream := flag.String("upstream", "", "NNTP upstream host:port to probe on /upstream")
	useTLS := flag.Bool("tls", false, "probe the upstream over TLS")
	timeout := flag.Duration("timeout", 5*time.Second, "upstream probe timeout")
	flag.Parse()

	h := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/health", "/healthz":
			ctx.Response.Header.Set("Content-Type", "application/json")
			ctx.SetStatusCode(fasthttp.StatusOK)
			// keep the handler extremely lean to measure router+net overhead
			_, _ = ctx.WriteString(fmt.Sprintf("{\"status\":\"ok\",\"version\":\"%s\"}", *ver))
		case "/upstream":
			ctx.Response.Header.Set("Content-Type", "application/json")
			if *upstream == "" {
				ctx.SetStatusCode(fasthttp.StatusNotFound)
				_, _ = ctx.WriteString("{\"status\":\"unconfigured\"}")
				return
			}
			if posting, err := probeUpstream(*upstream, *useTLS, *timeout); err != nil {
				ctx.SetStatusCode(fasthttp.StatusBadGateway)
				_, _ = ctx.WriteString(fmt.Sprintf("{\"status\":\"unreachable\",\"error\":%q}", err.Error()))
			} else {
				ctx.SetStatusCode(fasthttp.StatusOK)
				_, _ = ctx.WriteString(fmt.Sprintf("{\"status\":\"ok\",\"posting\":%v}", posting))
			}
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}

	fmt.Printf("newsdb health sidecar listening on %s\n", *addr)
	srv := &fasthttp.Server{
		Handler:            h,
		Name:               "newsdb-health",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       30 * time.Second,
		MaxRequestBodySize: 1 << 20,
	}
	if err := srv.ListenAndServe(*addr); err != nil {
		fmt.Printf("fasthttp server exit: %v\n", err)
	}
}

// probeUpstream dials the news server, reads the greeting and quits.
// Returns whether the server advertised posting permission.
func probeUpstream(addr string, useTLS bool, timeout time.Duration) (bool, error) {
	dial := nntp.Dial
	if useTLS {
		dial = nntp.DialTLS
	}
	c, err := dial(addr, nntp.WithTimeout(timeout))
	if err != nil {
		return false, err
	}
	posting := c.CanPost()
	_ = c.Quit()
	return posting, nil
}
