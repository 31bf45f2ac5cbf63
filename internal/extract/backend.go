package extract

import (
	"regexp"
	"strings"
)

// Backend scanning recognizes the switch/case action-dispatch idiom:
//
//	switch ($input['action']) {
//	    case 'get_seats':
//	        getSeats($pdo, $input['room_id']);
//	        break;
//	}
//
// Each case label becomes an Endpoint. Parameters come from request reads
// inside the case block and inside handler functions the block calls.
// Response keys come from json_encode array literals on the same paths.

var (
	switchRe      = regexp.MustCompile(`switch\s*\(([^)]*)\)`)
	caseRe        = regexp.MustCompile(`case\s*['"]([^'"]+)['"]\s*:`)
	paramReadRe   = regexp.MustCompile(`\$(?:input|data|_POST|_GET|_REQUEST)\[\s*['"](\w+)['"]\s*\]`)
	handlerCallRe = regexp.MustCompile(`(\w+)\s*\(`)
	jsonEncodeRe  = regexp.MustCompile(`json_encode\s*\(`)
	arrayKeyRe    = regexp.MustCompile(`['"](\w+)['"]\s*=>`)
	methodCheckRe = regexp.MustCompile(`REQUEST_METHOD['"]?\s*\]?\s*[!=]==?\s*['"](GET|POST)['"]`)
)

func scanEndpoints(path, content string) []Endpoint {
	var endpoints []Endpoint

	method := inferBackendMethod(content)
	format := inferBackendFormat(content)

	for _, sw := range switchRe.FindAllStringSubmatchIndex(content, -1) {
		subject := content[sw[2]:sw[3]]
		if !strings.Contains(strings.ToLower(subject), "action") {
			continue
		}

		body, bodyStart, ok := braceBlock(content, sw[1])
		if !ok {
			continue
		}

		cases := caseRe.FindAllStringSubmatchIndex(body, -1)
		for i, c := range cases {
			action := body[c[2]:c[3]]

			blockEnd := len(body)
			if i+1 < len(cases) {
				blockEnd = cases[i+1][0]
			}
			block := body[c[1]:blockEnd]

			ep := Endpoint{
				Action:        action,
				Method:        method,
				RequestFormat: format,
				Location:      Location{File: path, Line: lineAt(content, bodyStart+c[0])},
			}
			collectEndpointDetails(&ep, block, content)
			endpoints = append(endpoints, ep)
		}
	}

	return endpoints
}

// collectEndpointDetails gathers parameters and response keys from a case
// block, following one level of handler-function calls defined in the same
// artifact.
func collectEndpointDetails(ep *Endpoint, block, content string) {
	scopes := []string{block}
	for _, call := range handlerCallRe.FindAllStringSubmatch(block, -1) {
		if body, ok := functionBody(content, call[1]); ok {
			scopes = append(scopes, body)
		}
	}

	for _, scope := range scopes {
		for _, m := range paramReadRe.FindAllStringSubmatch(scope, -1) {
			if m[1] == "action" {
				continue
			}
			ep.Parameters = appendUnique(ep.Parameters, m[1])
		}
		for _, key := range jsonEncodeKeys(scope) {
			ep.ResponseKeys = appendUnique(ep.ResponseKeys, key)
		}
	}
}

// jsonEncodeKeys extracts the top-level keys of json_encode([...]) literals.
func jsonEncodeKeys(scope string) []string {
	var keys []string
	for _, loc := range jsonEncodeRe.FindAllStringIndex(scope, -1) {
		arg, ok := parenArg(scope, loc[1]-1)
		if !ok {
			continue
		}
		for _, m := range arrayKeyRe.FindAllStringSubmatch(arg, -1) {
			keys = appendUnique(keys, m[1])
		}
	}
	return keys
}

// functionBody finds "function name(...) { ... }" in the artifact and
// returns the brace-balanced body.
func functionBody(content, name string) (string, bool) {
	re := regexp.MustCompile(`function\s+` + regexp.QuoteMeta(name) + `\s*\([^)]*\)`)
	loc := re.FindStringIndex(content)
	if loc == nil {
		return "", false
	}
	body, _, ok := braceBlock(content, loc[1])
	return body, ok
}

// inferBackendMethod decides the HTTP method the artifact's handlers expect.
// Explicit REQUEST_METHOD comparisons win; otherwise the request-read
// superglobals decide, with POST as the dispatch-idiom default.
func inferBackendMethod(content string) string {
	if m := methodCheckRe.FindStringSubmatch(content); m != nil {
		return m[1]
	}

	readsGet := strings.Contains(content, "$_GET[")
	readsPost := strings.Contains(content, "$_POST[") ||
		strings.Contains(content, "php://input") ||
		strings.Contains(content, "$_REQUEST[")

	switch {
	case readsGet && readsPost:
		return MethodAny
	case readsGet:
		return MethodGet
	default:
		return MethodPost
	}
}

// inferBackendFormat classifies how the artifact reads its request payload.
func inferBackendFormat(content string) RequestFormat {
	if strings.Contains(content, "php://input") && strings.Contains(content, "json_decode") {
		return FormatJSON
	}
	if strings.Contains(content, "$_POST[") {
		return FormatForm
	}
	return FormatUnknown
}

// braceBlock scans forward from `from` to the first '{' and returns the
// balanced content between it and its matching '}'.
func braceBlock(text string, from int) (body string, bodyStart int, ok bool) {
	start := strings.IndexByte(text[from:], '{')
	if start < 0 {
		return "", 0, false
	}
	start += from
	depth := 0
	for j := start; j < len(text); j++ {
		switch text[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start+1 : j], start + 1, true
			}
		}
	}
	return "", 0, false
}

// parenArg returns the balanced content between the '(' at or after `from`
// and its matching ')'.
func parenArg(text string, from int) (string, bool) {
	i := strings.IndexByte(text[from:], '(')
	if i < 0 {
		return "", false
	}
	start := from + i
	depth := 0
	for j := start; j < len(text); j++ {
		switch text[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return text[start+1 : j], true
			}
		}
	}
	return "", false
}
