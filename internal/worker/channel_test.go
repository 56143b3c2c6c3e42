package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPipeDeliversInOrder(t *testing.T) {
	controller, unit := Pipe()
	ctx := context.Background()

	go func() {
		for i := uint64(1); i <= 3; i++ {
			msg, ok, err := unit.Poll(time.Second)
			if err != nil || !ok {
				return
			}
			_ = unit.Send(ctx, envelope{Seq: msg.Seq, Outcome: Result(msg.Command.Name)})
		}
	}()

	for i, name := range []string{"a", "b", "c"} {
		if err := controller.Send(ctx, envelope{Seq: uint64(i + 1), Command: Command{Name: name}}); err != nil {
			t.Fatalf("send %s: %v", name, err)
		}
		reply, err := controller.Recv(ctx)
		if err != nil {
			t.Fatalf("recv %s: %v", name, err)
		}
		if reply.Seq != uint64(i+1) || reply.Outcome.Value != name {
			t.Fatalf("unexpected reply %+v for %s", reply, name)
		}
	}
}

func TestPollTimesOut(t *testing.T) {
	_, unit := Pipe()
	_, ok, err := unit.Poll(10 * time.Millisecond)
	if err != nil || ok {
		t.Fatalf("expected timeout, got ok=%v err=%v", ok, err)
	}
}

func TestClosedPipeRejectsTraffic(t *testing.T) {
	controller, unit := Pipe()
	unit.Close()
	unit.Close()

	if !controller.Closed() {
		t.Fatal("closing one end should close the channel")
	}
	if err := controller.Send(context.Background(), envelope{}); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed from Send, got %v", err)
	}
	if _, err := controller.Recv(context.Background()); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed from Recv, got %v", err)
	}
	if _, _, err := unit.Poll(time.Second); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed from Poll, got %v", err)
	}
}

func TestRecvDrainsQueuedReplyAfterClose(t *testing.T) {
	controller, unit := Pipe()
	if err := unit.Send(context.Background(), envelope{Seq: 7, Outcome: Result("late")}); err != nil {
		t.Fatalf("send: %v", err)
	}
	unit.Close()

	reply, err := controller.Recv(context.Background())
	if err != nil {
		t.Fatalf("expected queued reply, got %v", err)
	}
	if reply.Seq != 7 {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestSendHonoursContext(t *testing.T) {
	controller, _ := Pipe()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := controller.Send(ctx, envelope{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
