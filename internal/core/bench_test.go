package core

import (
	"strconv"
	"testing"
)

func benchmarkBroadcast(b *testing.B, recipients int) {
	hub := NewHub(nil, nil, nil)

	sender := NewClient(0, "bench", 1, nil)
	_ = sender.SetName("sender")
	_ = hub.Register(sender)

	clients := make([]*Client, 0, recipients)
	for i := 0; i < recipients; i++ {
		c := NewClient(int64(i+1), "bench", 1024, nil)
		_ = c.SetName("c" + strconv.Itoa(i))
		_ = hub.Register(c)
		clients = append(clients, c)
	}
	drain(clients...)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		hub.Route(sender, []byte("payload"))
		drain(clients...)
	}
}

func BenchmarkBroadcast_10(b *testing.B)  { benchmarkBroadcast(b, 10) }
func BenchmarkBroadcast_100(b *testing.B) { benchmarkBroadcast(b, 100) }
func BenchmarkBroadcast_500(b *testing.B) { benchmarkBroadcast(b, 500) }
