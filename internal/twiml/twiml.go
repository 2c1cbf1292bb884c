// Package twiml renders the call-control documents the telephony provider
// fetches over HTTP: a voice response that connects the call to the media
// stream socket, and a messaging response for the WhatsApp webhook.
package twiml

import "encoding/xml"

type voiceResponse struct {
	XMLName xml.Name `xml:"Response"`
	Say     *say     `xml:"Say,omitempty"`
	Connect *connect `xml:"Connect,omitempty"`
}

type say struct {
	Language string `xml:"language,attr,omitempty"`
	Text     string `xml:",chardata"`
}

type connect struct {
	Stream stream `xml:"Stream"`
}

type stream struct {
	URL string `xml:"url,attr"`
}

// Voice builds a voice document: an optional spoken intro followed by a
// Connect/Stream directive opening the duplex media socket at streamURL.
func Voice(intro, language, streamURL string) ([]byte, error) {
	resp := voiceResponse{
		Connect: &connect{Stream: stream{URL: streamURL}},
	}
	if intro != "" {
		resp.Say = &say{Language: language, Text: intro}
	}
	return marshal(resp)
}

type messagingResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message message  `xml:"Message"`
}

type message struct {
	Body  string `xml:"Body"`
	Media string `xml:"Media,omitempty"`
}

// Message builds a messaging document with an optional media attachment URL.
func Message(body, mediaURL string) ([]byte, error) {
	return marshal(messagingResponse{
		Message: message{Body: body, Media: mediaURL},
	})
}

func marshal(v interface{}) ([]byte, error) {
	data, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}
