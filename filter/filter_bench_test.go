package filter

import (
	"fmt"
	"testing"

	"github.com/exportkit/chatview/model"
)

func benchMessages(n int) []model.Message {
	msgs := make([]model.Message, n)
	for i := range msgs {
		msgs[i] = model.Message{
			Author:  fmt.Sprintf("user-%d", i%7),
			Content: fmt.Sprintf("message %d with some body text to scan", i),
		}
	}
	return msgs
}

func BenchmarkFilter_Allows_Include(b *testing.B) {
	f, err := New(Options{IncludeAuthor: []string{"^user-3$"}, IncludeContent: []string{"42"}})
	if err != nil {
		b.Fatal(err)
	}
	msgs := benchMessages(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, msg := range msgs {
			f.Allows(msg)
		}
	}
}

func BenchmarkFilter_Allows_Exclude(b *testing.B) {
	f, err := New(Options{ExcludeAuthor: []string{"bot$"}, ExcludeContent: []string{"(?i)spam"}})
	if err != nil {
		b.Fatal(err)
	}
	msgs := benchMessages(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, msg := range msgs {
			f.Allows(msg)
		}
	}
}

func BenchmarkFilter_Allows_Inactive(b *testing.B) {
	f, err := New(Options{})
	if err != nil {
		b.Fatal(err)
	}
	msgs := benchMessages(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, msg := range msgs {
			f.Allows(msg)
		}
	}
}
