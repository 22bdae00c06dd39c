// Package message defines the typed request/result envelopes exchanged
// between bank nodes and their flat-string wire codec.
//
// Wire format: <tag>%<txid>!<key>=<value>,<key>=<value>...
// The separators are reserved and must not appear in field values.
package message

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

const (
	tagSeparator   = "%"
	txSeparator    = "!"
	paramEquals    = "="
	paramSeparator = ","
)

// data is the decoded shape of a wire string: a type tag, a transaction id
// and a flat parameter map.
type data struct {
	tag    string
	txID   string
	params map[string]string
}

func (d data) pack() string {
	var b strings.Builder
	b.WriteString(d.tag)
	b.WriteString(tagSeparator)
	b.WriteString(d.txID)
	b.WriteString(txSeparator)

	keys := make([]string, 0, len(d.params))
	for k := range d.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		if i > 0 {
			b.WriteString(paramSeparator)
		}
		b.WriteString(k)
		b.WriteString(paramEquals)
		b.WriteString(d.params[k])
	}
	return b.String()
}

func parseData(s string) (data, error) {
	tagIndex := strings.Index(s, tagSeparator)
	if tagIndex < 0 {
		return data{}, fmt.Errorf("no tag separator %q in %q", tagSeparator, s)
	}
	txIndex := strings.Index(s[tagIndex+1:], txSeparator)
	if txIndex < 0 {
		return data{}, fmt.Errorf("no transaction separator %q in %q", txSeparator, s)
	}
	txIndex += tagIndex + 1

	return data{
		tag:    s[:tagIndex],
		txID:   s[tagIndex+1 : txIndex],
		params: parseParams(s[txIndex+1:]),
	}, nil
}

// parseParams decodes the key=value section. Unparseable segments are
// dropped with a warning rather than failing the whole message.
func parseParams(s string) map[string]string {
	params := make(map[string]string)
	for _, segment := range strings.Split(s, paramSeparator) {
		if segment == "" {
			continue
		}
		kv := strings.Split(segment, paramEquals)
		if len(kv) != 2 {
			log.Printf("parseParams: dropping invalid key-value pair %q", segment)
			continue
		}
		if old, ok := params[kv[0]]; ok {
			log.Printf("parseParams: overwriting value %q of key %q", old, kv[0])
		}
		params[kv[0]] = kv[1]
	}
	return params
}
