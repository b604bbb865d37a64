// Package device is the host-side stand-in for the board behind the
// configuration engine.
//
// Device implements httpd.Device. The display, identify LED and RDM switch
// are in-memory flags, date and RTC writes become offsets from the host
// clock, reboot calls back into the daemon, and shows are showNN.txt files in
// a directory. Producers returns the read-only /json/ routes; those of a
// disabled feature are left out so the engine answers 404 for them.
package device
