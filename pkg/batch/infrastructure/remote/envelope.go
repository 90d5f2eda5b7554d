// Package remote implements port.ScriptExecutor against the remote code
// execution service's XML endpoint. One Execute call maps to exactly one
// outbound request; every failure shape is folded into the returned outcome.
package remote

import (
	"encoding/xml"
	"fmt"
)

const (
	// soapEnvelopeNamespace is the SOAP 1.1 envelope namespace.
	soapEnvelopeNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
	// serviceNamespace is the namespace of the execution service's elements.
	serviceNamespace = "http://soap.setwave.io/exec"

	// requestContentType is sent on every outbound request.
	requestContentType = "text/xml; charset=UTF-8"
	// soapActionHeader carries the quoted operation name the endpoint routes on.
	soapActionHeader = `"executeScript"`
)

// requestEnvelope is the outbound message. Element names carry their prefixes
// literally so the serialized form matches the wire contract byte for byte.
type requestEnvelope struct {
	XMLName   xml.Name      `xml:"soapenv:Envelope"`
	NSSoapEnv string        `xml:"xmlns:soapenv,attr"`
	NSExec    string        `xml:"xmlns:exec,attr"`
	Header    requestHeader `xml:"soapenv:Header"`
	Body      requestBody   `xml:"soapenv:Body"`
}

type requestHeader struct {
	Session sessionHeader `xml:"exec:SessionHeader"`
}

type sessionHeader struct {
	SessionID string `xml:"exec:sessionId"`
}

type requestBody struct {
	Execute executeScript `xml:"exec:executeScript"`
}

type executeScript struct {
	Script string `xml:"exec:script"`
}

// buildRequest serializes the composed script and session token into the
// request envelope. The script travels as escaped character data.
func buildRequest(script string, sessionID string) ([]byte, error) {
	envelope := requestEnvelope{
		NSSoapEnv: soapEnvelopeNamespace,
		NSExec:    serviceNamespace,
		Header:    requestHeader{Session: sessionHeader{SessionID: sessionID}},
		Body:      requestBody{Execute: executeScript{Script: script}},
	}
	data, err := xml.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}

// responseEnvelope mirrors the inbound message. Matching is by local name
// only, so prefixed and default-namespace responses both parse. Required
// nodes are pointers; a nil after unmarshal means the node was absent.
type responseEnvelope struct {
	XMLName xml.Name      `xml:"Envelope"`
	Body    *responseBody `xml:"Body"`
}

type responseBody struct {
	Response *executeScriptResponse `xml:"executeScriptResponse"`
}

type executeScriptResponse struct {
	Result *executeResult `xml:"result"`
}

// executeResult is the structured verdict for one script execution.
// success and compiled are mandatory on the wire; the diagnostic fields are
// populated only on failure.
type executeResult struct {
	Success             *bool  `xml:"success"`
	Compiled            *bool  `xml:"compiled"`
	CompileProblem      string `xml:"compileProblem"`
	Line                int    `xml:"line"`
	Column              int    `xml:"column"`
	ExceptionMessage    string `xml:"exceptionMessage"`
	ExceptionStackTrace string `xml:"exceptionStackTrace"`
}

// parseResponse decodes a response body into its result node. A non-empty
// second return value is the protocol-violation detail for a body that does
// not honor the wire contract, and the result is nil in that case.
func parseResponse(data []byte) (*executeResult, string) {
	var envelope responseEnvelope
	if err := xml.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Sprintf("malformed response: %v", err)
	}
	if envelope.Body == nil || envelope.Body.Response == nil {
		return nil, "malformed response: missing executeScriptResponse"
	}
	if envelope.Body.Response.Result == nil {
		return nil, "malformed response: missing result"
	}
	result := envelope.Body.Response.Result
	if result.Success == nil {
		return nil, "malformed response: missing success"
	}
	if result.Compiled == nil {
		return nil, "malformed response: missing compiled"
	}
	return result, ""
}
