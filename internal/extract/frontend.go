package extract

import (
	"regexp"
	"strings"
)

// Frontend scanning recognizes fetch-style call sites:
//
//	fetch('api.php?action=get_seats')
//	fetch('api.php', {
//	    method: 'POST',
//	    body: JSON.stringify({action: 'book_seat', seat_id: id}),
//	})
//
// The action name may live in the URL query or in the request body. Expected
// response keys are taken from property reads on the value a following
// .json() call produces.

var (
	fetchRe      = regexp.MustCompile(`fetch\s*\(\s*['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`)
	fetchMethRe  = regexp.MustCompile(`method\s*:\s*['"](\w+)['"]`)
	bodyActionRe = regexp.MustCompile(`['"]?action['"]?\s*:\s*['"](\w+)['"]`)
	bodyKeyRe    = regexp.MustCompile(`['"]?(\w+)['"]?\s*:`)
	jsonVarRe    = regexp.MustCompile(`(\w+)\s*=\s*await\s+\w+\s*\.\s*json\s*\(\s*\)`)
	jsonCallRe   = regexp.MustCompile(`\.\s*json\s*\(\s*\)`)
)

// responseWindow bounds how far past a call site the scanner looks for
// response-key usage.
const responseWindow = 500

// jsPropertyNoise lists property names that are almost always JavaScript
// plumbing rather than API response keys.
var jsPropertyNoise = map[string]bool{
	"forEach": true, "map": true, "filter": true, "find": true,
	"length": true, "push": true, "slice": true, "join": true,
	"then": true, "catch": true, "json": true,
}

func scanCalls(path, content string) []FrontendCall {
	var calls []FrontendCall

	for _, m := range fetchRe.FindAllStringSubmatchIndex(content, -1) {
		url := content[m[2]:m[3]]

		options, optionsEnd := fetchOptions(content, m[1])

		call := FrontendCall{
			Method:   MethodGet,
			Location: Location{File: path, Line: lineAt(content, m[0])},
		}

		if mm := fetchMethRe.FindStringSubmatch(options); mm != nil {
			call.Method = strings.ToUpper(mm[1])
		}

		call.Action, call.Parameters = urlActionAndParams(url)

		bodyText := stringifyBody(options)
		switch {
		case bodyText != "":
			call.RequestFormat = FormatJSON
		case strings.Contains(options, "FormData") || strings.Contains(options, "URLSearchParams"):
			call.RequestFormat = FormatForm
		case len(call.Parameters) > 0:
			// query-string payload beyond the action itself
			call.RequestFormat = FormatForm
		}

		if bodyText != "" {
			if call.Action == "" {
				if am := bodyActionRe.FindStringSubmatch(bodyText); am != nil {
					call.Action = am[1]
				}
			}
			for _, km := range bodyKeyRe.FindAllStringSubmatch(bodyText, -1) {
				if km[1] == "action" {
					continue
				}
				call.Parameters = appendUnique(call.Parameters, km[1])
			}
		}

		// A call with no discernible action cannot be cross-referenced;
		// skip it rather than guess.
		if call.Action == "" {
			continue
		}

		end := optionsEnd
		if end < m[1] {
			end = m[1]
		}
		call.ExpectedResponseKeys = responseKeys(content, end)

		calls = append(calls, call)
	}

	return calls
}

// fetchOptions returns the options object literal following the URL
// argument, if any, and the offset just past it.
func fetchOptions(content string, from int) (string, int) {
	rest := content[from:]
	comma := strings.IndexByte(rest, ',')
	paren := strings.IndexByte(rest, ')')
	if comma < 0 || (paren >= 0 && paren < comma) {
		return "", from
	}
	body, bodyStart, ok := braceBlock(content, from+comma)
	if !ok {
		return "", from
	}
	return body, bodyStart + len(body) + 1
}

// urlActionAndParams pulls the action name and remaining query parameter
// names out of a call URL.
func urlActionAndParams(url string) (action string, params []string) {
	q := strings.IndexByte(url, '?')
	if q < 0 {
		return "", nil
	}
	for _, pair := range strings.Split(url[q+1:], "&") {
		key, value, found := strings.Cut(pair, "=")
		if key == "" {
			continue
		}
		if key == "action" {
			if found {
				// template placeholders like ${action} are not literal names
				if !strings.ContainsAny(value, "${}") {
					action = value
				}
			}
			continue
		}
		params = appendUnique(params, key)
	}
	return action, params
}

// stringifyBody returns the object literal passed to JSON.stringify inside
// the options, or "" when the body is not JSON.
func stringifyBody(options string) string {
	i := strings.Index(options, "JSON.stringify")
	if i < 0 {
		return ""
	}
	arg, ok := parenArg(options, i)
	if !ok {
		return ""
	}
	return arg
}

// responseKeys looks at the text following a call site for reads on the
// decoded response value.
func responseKeys(content string, from int) []string {
	end := from + responseWindow
	if end > len(content) {
		end = len(content)
	}
	window := content[from:end]

	if jsonCallRe.FindStringIndex(window) == nil {
		return nil
	}

	// Prefer the variable the decoded body is assigned to; fall back to
	// the conventional name "data".
	varName := "data"
	if vm := jsonVarRe.FindStringSubmatch(window); vm != nil {
		varName = vm[1]
	}

	propRe := regexp.MustCompile(regexp.QuoteMeta(varName) + `\.(\w+)`)
	var keys []string
	for _, pm := range propRe.FindAllStringSubmatch(window, -1) {
		if jsPropertyNoise[pm[1]] {
			continue
		}
		keys = appendUnique(keys, pm[1])
	}
	return keys
}
