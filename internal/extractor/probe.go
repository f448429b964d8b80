package extractor

// probeScript inspects settled page state for a video source, in the order
// a human viewer would encounter one: the live player instance first, then
// static configuration, then raw markup. Returns {type:'hls'|'youtube',
// value} or null.
const probeScript = `() => {
	const yt = (s) => {
		const m = s && s.match(/youtube\.com\/embed\/([A-Za-z0-9_-]{11})/);
		return m ? m[1] : null;
	};

	// 1. Embedded player instance's current source.
	const player = window.player || (window.videojs && window.videojs.getPlayers &&
		Object.values(window.videojs.getPlayers())[0]);
	if (player) {
		const src = (player.currentSrc && player.currentSrc()) || player.src;
		if (typeof src === 'string' && src.includes('.m3u8')) {
			return { type: 'hls', value: src };
		}
	}

	// 2. Player configuration attribute.
	const cfg = document.querySelector('[data-plyr-embed-id], [data-youtube-id]');
	if (cfg) {
		const id = cfg.getAttribute('data-plyr-embed-id') || cfg.getAttribute('data-youtube-id');
		if (id && /^[A-Za-z0-9_-]{11}$/.test(id)) {
			return { type: 'youtube', value: id };
		}
	}

	// 3. YouTube iframe.
	const ytFrame = document.querySelector('iframe[src*="youtube.com/embed"]');
	if (ytFrame) {
		const id = yt(ytFrame.src);
		if (id) return { type: 'youtube', value: id };
	}

	// 4. Direct video element source.
	const video = document.querySelector('video');
	if (video) {
		const src = video.currentSrc || video.src ||
			(video.querySelector('source') && video.querySelector('source').src);
		if (src && src.includes('.m3u8')) {
			return { type: 'hls', value: src };
		}
	}

	// 5. Generic embedded-player iframe.
	const frame = document.querySelector('iframe[src*="player"], iframe[src*="embed"]');
	if (frame && frame.src) {
		const id = yt(frame.src);
		if (id) return { type: 'youtube', value: id };
		if (frame.src.includes('.m3u8')) return { type: 'hls', value: frame.src };
	}

	// 6. Raw page source.
	const html = document.documentElement.outerHTML;
	const hls = html.match(/https?:\/\/stream\.imvbox\.com\/media\/[^"'\s\\]+\.m3u8/);
	if (hls) return { type: 'hls', value: hls[0] };
	const ytID = yt(html);
	if (ytID) return { type: 'youtube', value: ytID };

	return null;
}`
