package browser

import "fmt"

// BindingName is the CDP runtime binding the instrumentation reports through.
const BindingName = "__perfprobeReport"

// flushHook is a non-enumerable window property that drains pending
// observer records synchronously before extraction.
const flushHook = "__perfprobeFlush"

// instrumentationScript runs in every new document before any page script.
// Only the top-level frame reports; iframes get the script too.
var instrumentationScript = fmt.Sprintf(`(() => {
	if (window !== window.top) return;
	const report = window[%[1]q];
	if (typeof report !== 'function') return;
	const send = (msg) => { try { report(JSON.stringify(msg)); } catch (e) {} };

	send({ type: 'init' });

	const observers = [];

	const onLCP = (entries) => {
		for (const e of entries) {
			send({
				type: 'lcp',
				renderTime: e.renderTime || 0,
				loadTime: e.loadTime || 0,
				startTime: e.startTime || 0,
				size: e.size || 0,
			});
		}
	};
	try {
		const lcp = new PerformanceObserver((list) => onLCP(list.getEntries()));
		lcp.observe({ type: 'largest-contentful-paint', buffered: true });
		observers.push([lcp, onLCP]);
	} catch (e) {}

	const onShift = (entries) => {
		for (const e of entries) {
			send({ type: 'layout-shift', value: e.value || 0, hadRecentInput: !!e.hadRecentInput });
		}
	};
	try {
		const cls = new PerformanceObserver((list) => onShift(list.getEntries()));
		cls.observe({ type: 'layout-shift', buffered: true });
		observers.push([cls, onShift]);
	} catch (e) {}

	Object.defineProperty(window, %[2]q, {
		value: () => { for (const [o, fn] of observers) { try { fn(o.takeRecords()); } catch (e) {} } },
	});
})();`, BindingName, flushHook)

// extractScript snapshots the timing APIs once, after load. It computes
// nothing; derivation happens in Go.
var extractScript = fmt.Sprintf(`(() => {
	if (typeof window[%[1]q] === 'function') window[%[1]q]();

	const perf = window.performance;
	const out = { legacy: null, navigation: [], resources: [], paint: [], now: 0 };
	if (!perf) return out;

	if (perf.timing) {
		out.legacy = typeof perf.timing.toJSON === 'function' ? perf.timing.toJSON() : perf.timing;
	}
	if (typeof perf.getEntriesByType === 'function') {
		out.navigation = perf.getEntriesByType('navigation').map((e) => e.toJSON());
		out.resources = perf.getEntriesByType('resource').map((e) => ({
			name: e.name,
			initiatorType: e.initiatorType,
			duration: e.duration,
			transferSize: e.transferSize || 0,
		}));
		out.paint = perf.getEntriesByType('paint').map((e) => ({ name: e.name, startTime: e.startTime }));
	}
	out.now = perf.now();
	return out;
})()`, flushHook)
