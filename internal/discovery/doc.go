// Package discovery announces running ecofan bridges on the local network
// over mDNS and finds them again.
//
// A bridge started with 'ecofan run --advertise' registers itself as an
// _ecofan._tcp service. Its TXT records carry the bridge version, the API
// path and the number of configured fans:
//
//	adv, err := discovery.Advertise(discovery.Announcement{
//	    Instance: "living-room-bridge",
//	    Port:     8124,
//	    Text:     discovery.TXTRecords(version.Version, 3),
//	}, log)
//	if err != nil {
//	    return err
//	}
//	defer adv.Shutdown()
//
// Bridges are listed with a Scanner:
//
//	bridges, err := discovery.NewScanner().Scan(ctx)
//
// Fans themselves are not discovered; they are added by address.
package discovery
