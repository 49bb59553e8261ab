package report

import (
	"net/mail"
	"strings"
)

func domainOf(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	addrs, err := mail.ParseAddressList(from)
	if err != nil {
		return extractDomain(from)
	}
	for _, addr := range addrs {
		if dom := extractDomain(addr.Address); dom != "" {
			return dom
		}
	}
	return ""
}

func extractDomain(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return ""
	}
	at := strings.LastIndex(address, "@")
	if at == -1 {
		return ""
	}
	return strings.Trim(address[at+1:], ". ")
}
