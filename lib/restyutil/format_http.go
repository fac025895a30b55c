package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
)

// bodies longer than this are cut in dumps, catalog listings can be large
const maxDumpedBody = 64 * 1024

func writeHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

func writeBody(out *strings.Builder, body string) {
	if len(body) > maxDumpedBody {
		fmt.Fprintf(out, "%s\n... (%d bytes omitted)\n", body[:maxDumpedBody], len(body)-maxDumpedBody)
		return
	}
	out.WriteString(body)
	out.WriteString("\n")
}

func requestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("<unreadable request body: %s>", err)
	}
	// resty's GetBody yields a nil reader for bodiless requests
	if body == nil {
		return ""
	}
	defer body.Close()
	read, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("<unreadable request body: %s>", err)
	}
	return string(read)
}

// formatExchange renders a request and its response as plain text.
func formatExchange(res *resty.Response) string {
	out := &strings.Builder{}

	out.WriteString("> ")
	out.WriteString(res.Request.Method)
	out.WriteString(" ")
	out.WriteString(res.Request.URL)
	out.WriteString("\n")
	if res.Request.RawRequest != nil {
		writeHeaders(out, res.Request.RawRequest.Header)
	}
	out.WriteString("\n")
	writeBody(out, requestBody(res.Request.RawRequest))

	location := res.Request.URL
	if res.RawResponse != nil {
		redirected, err := res.RawResponse.Location()
		if err == nil {
			location = redirected.String()
		}
	}
	fmt.Fprintf(out, "\n< %s %s (%s)\n", res.Status(), location, res.Time())
	writeHeaders(out, res.Header())
	out.WriteString("\n")
	writeBody(out, res.String())

	return out.String()
}
