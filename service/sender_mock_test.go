package service

import (
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockSender is a hand-written stand-in for what `mockgen` would generate
// for the Sender interface, in the same gomock idiom
// ghettovoice-gosip/sip/transport_reliable_test.go uses against its own
// transport mocks. Written by hand since this module's process never
// invokes the mockgen binary.
type MockSender struct {
	ctrl     *gomock.Controller
	recorder *MockSenderMockRecorder
}

type MockSenderMockRecorder struct {
	mock *MockSender
}

func NewMockSender(ctrl *gomock.Controller) *MockSender {
	m := &MockSender{ctrl: ctrl}
	m.recorder = &MockSenderMockRecorder{mock: m}
	return m
}

func (m *MockSender) EXPECT() *MockSenderMockRecorder {
	return m.recorder
}

func (m *MockSender) Send(buf []byte) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Send", buf)
	err, _ := ret[0].(error)
	return err
}

func (mr *MockSenderMockRecorder) Send(buf any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Send", reflect.TypeOf((*MockSender)(nil).Send), buf)
}
