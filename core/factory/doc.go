// Package factory provides a small generic registry used to instantiate
// pluggable modules (metric sinks, packet log stores) from configuration.
// A module is defined by a type string and a map of raw settings that the
// factory decodes into a typed struct.
//
// Example usage:
//
//	reg := factory.NewRegistry[solutionlog.Store]()
//	reg.Register("jsonl", func(conf map[string]any) (solutionlog.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return solutionlog.NewJSONLStore(c.Path)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "packets.jsonl"}})
package factory
