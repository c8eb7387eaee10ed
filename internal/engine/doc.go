// Package engine is the public facade of the alarm scheduler.
//
// Engine validates requests, writes records through the store, asks the
// scheduler to reconsider its wake-up after every change and raises a
// notification when an alarm fires. It is the whole contract available to
// the transport layer and any other caller.
package engine
