package llmclient

import "github.com/pkoukk/tiktoken-go"

func newTestTokenizer() (*tiktoken.Tiktoken, error) {
	return tiktoken.GetEncoding("cl100k_base")
}
