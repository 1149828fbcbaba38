package broker

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"brokerd/internal/store"
	"brokerd/internal/topic"
)

func testBroker(t *testing.T) *Broker {
	t.Helper()
	cfg := Config{IngressRatePerSec: 1000, IngressBurst: 1000, MaxSubscribers: 100}
	return New(store.New(), nil, cfg, zerolog.Nop())
}

func mustTopic(t *testing.T, s string) topic.Topic {
	t.Helper()
	tp, err := topic.Parse(s)
	if err != nil {
		t.Fatalf("topic.Parse(%q): %v", s, err)
	}
	return tp
}

// listenFrames opens a local TCP listener and accepts connections in a
// loop, matching the broker's fresh-connection-per-forwarded-message
// semantics. Each accepted connection's full payload (read until the
// broker closes it) is delivered as one value on the returned channel.
func listenFrames(t *testing.T) (port string, out chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	out = make(chan string, 16)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				data, _ := bufio.NewReader(conn).ReadString(0)
				out <- data
			}()
		}
	}()
	_, p, _ := net.SplitHostPort(ln.Addr().String())
	return p, out
}

func TestPersistentReplay(t *testing.T) {
	b := testBroker(t)
	b.append(topic.Message{Topic: mustTopic(t, "a/b"), Value: "1"})
	b.append(topic.Message{Topic: mustTopic(t, "a/b"), Value: "2"})
	b.append(topic.Message{Topic: mustTopic(t, "a/c"), Value: "3"})

	port, out := listenFrames(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg, err := parseRegistration("a/+|127.0.0.1:" + port + "|p")
	if err != nil {
		t.Fatalf("parseRegistration: %v", err)
	}
	go b.runDeliveryWorker(ctx, reg, "persistent")

	want := []string{"(topic: a/b, value: \"1\")", "(topic: a/b, value: \"2\")", "(topic: a/c, value: \"3\")"}
	got := map[string]bool{}
	for i := 0; i < len(want); i++ {
		select {
		case frame := <-out:
			got[frame] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for replay frame %d", i)
		}
	}
	for _, w := range want {
		if !got[w] {
			t.Errorf("missing expected replay frame %q; got set %v", w, got)
		}
	}
}

func TestNonPersistentLatestOnly(t *testing.T) {
	b := testBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	port, out := listenFrames(t)
	reg, err := parseRegistration("#|127.0.0.1:" + port + "|-")
	if err != nil {
		t.Fatalf("parseRegistration: %v", err)
	}
	go b.runDeliveryWorker(ctx, reg, "non-persistent")

	// Give the worker time to reach its first wait.
	time.Sleep(50 * time.Millisecond)

	b.append(topic.Message{Topic: mustTopic(t, "x"), Value: "1"})
	b.append(topic.Message{Topic: mustTopic(t, "x"), Value: "2"})
	b.append(topic.Message{Topic: mustTopic(t, "x"), Value: "3"})

	select {
	case got := <-out:
		want := "(topic: x, value: \"3\")"
		if got != want {
			t.Errorf("non-persistent forward = %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for non-persistent forward")
	}
}

func TestDuplicateNonPersistentRejected(t *testing.T) {
	b := testBroker(t)
	if !b.table.admitNonPersistent("9300") {
		t.Fatal("expected first registration on port 9300 to be admitted")
	}
	if b.table.admitNonPersistent("9300") {
		t.Fatal("expected second registration on port 9300 to be rejected")
	}
}

func TestFanOutToAllPersistentSubscribers(t *testing.T) {
	b := testBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const subscriberCount = 4
	outs := make([]chan string, subscriberCount)
	for i := 0; i < subscriberCount; i++ {
		port, out := listenFrames(t)
		outs[i] = out
		reg, err := parseRegistration("#|127.0.0.1:" + port + "|p")
		if err != nil {
			t.Fatalf("parseRegistration: %v", err)
		}
		go b.runDeliveryWorker(ctx, reg, "persistent")
	}

	time.Sleep(50 * time.Millisecond)
	b.append(topic.Message{Topic: mustTopic(t, "a/b"), Value: "hi"})

	for i, out := range outs {
		select {
		case got := <-out:
			if got != "(topic: a/b, value: \"hi\")" {
				t.Errorf("subscriber %d got %q", i, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %d: timed out", i)
		}
	}
}

func TestIngressFrameReassemblyAcrossReads(t *testing.T) {
	b := testBroker(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		b.handlePublisherConn(conn, zerolog.Nop())
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Split a single frame across two writes to exercise reassembly.
	conn.Write([]byte("sensors/te"))
	time.Sleep(20 * time.Millisecond)
	conn.Write([]byte("mp|23C\n"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.log.Count() == 1 {
			msgs := b.log.Snapshot()
			if msgs[0].Value != "23C" || msgs[0].Topic.String() != "sensors/temp" {
				t.Fatalf("unexpected reassembled message: %+v", msgs[0])
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for reassembled frame to be appended")
}
